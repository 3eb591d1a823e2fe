package fabric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/procuretrust/tender-gateway/internal/service"
)

// translate maps gateway and transport failures onto the service error
// taxonomy, preserving the chaincode's own message verbatim.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", service.ErrTimeout, err)
	}

	msg := err.Error()
	var endorseErr *client.EndorseError
	var submitErr *client.SubmitError
	var commitStatusErr *client.CommitStatusError
	var commitErr *client.CommitError
	switch {
	case errors.As(err, &endorseErr):
		msg = endorseErr.GRPCStatus().Message()
	case errors.As(err, &submitErr):
		msg = submitErr.GRPCStatus().Message()
	case errors.As(err, &commitStatusErr):
		msg = commitStatusErr.GRPCStatus().Message()
	case errors.As(err, &commitErr):
		return fmt.Errorf("%w: %s", service.ErrLedger, commitErr)
	}

	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", service.ErrTimeout, msg)
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", service.ErrConnection, msg)
	}

	if isNotFound(msg) {
		return fmt.Errorf("%w: %s", service.ErrNotFound, msg)
	}
	return fmt.Errorf("%w: %s", service.ErrLedger, msg)
}

func isNotFound(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}
