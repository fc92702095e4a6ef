package llama

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/JPercival/trade-arbitrage/internal/apperror"
	"github.com/JPercival/trade-arbitrage/internal/httpclient"
)

// statusErrorHandler maps non-2xx upstream responses onto the error
// taxonomy before any body decoding happens.
func statusErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	if statusCode == 429 {
		return apperror.New(apperror.CodeRateLimited,
			apperror.WithContext("provider=llama"),
		)
	}
	return apperror.New(apperror.CodeHTTPError,
		apperror.WithMessage(fmt.Sprintf("price feed returned status %d", statusCode)),
		apperror.WithContext(fmt.Sprintf("provider=llama status=%d body=%s", statusCode, truncate(body, 256))),
	)
}

// classifyRequestError sorts a request error into timeout, network, or
// malformed-response buckets. Errors already carrying a code pass through.
func classifyRequestError(err error, resp *httpclient.Response) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.External(apperror.CodeServiceTimeout, "provider=llama", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.External(apperror.CodeServiceTimeout, "provider=llama", err)
	}
	if resp != nil && resp.IsSuccess() {
		// Transport succeeded, so the failure was decoding the body.
		return apperror.External(apperror.CodeMalformedResponse, "provider=llama", err)
	}
	return apperror.External(apperror.CodeNetworkError, "provider=llama", err)
}

func mapTransportError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeServiceTimeout, "provider=llama "+msg)
	}
	return apperror.Wrap(err, apperror.CodeNetworkError, "provider=llama "+msg)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
