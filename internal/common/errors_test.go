package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/common"
)

func TestAppErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	appErr := common.NewAppError("GATEWAY_DOWN", "gateway unreachable", http.StatusBadGateway, cause)

	require.Equal(t, "connection refused", appErr.Error())
	require.ErrorIs(t, appErr, cause)
	require.True(t, common.IsAppError(fmt.Errorf("create order: %w", appErr)))
}

func TestAppErrorWithoutCause(t *testing.T) {
	appErr := common.NewAppError("PAYMENT_MISCONFIGURED", "invalid payment amount", http.StatusInternalServerError, nil)

	require.Equal(t, "invalid payment amount", appErr.Error())
	require.NoError(t, appErr.Unwrap())
	require.False(t, common.IsAppError(errors.New("plain")))
}
