package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

const tracerName = "github.com/Jenaru0/dela-storefront/internal/gate"

// Request describes one call. The access token is attached by the gate.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response is a completed HTTP exchange, whatever its status.
type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool { return r != nil && r.Status >= 200 && r.Status < 300 }

func (r *Response) Decode(out any) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, out)
}

// Doer performs one exchange. It returns an error only when no response was
// received at all.
type Doer interface {
	Do(ctx context.Context, req Request, accessToken string) (*Response, error)
}

type TokenSource interface {
	AccessToken() string
}

// Renewer is the part of the session controller the gate drives.
type Renewer interface {
	Renew(ctx context.Context) (types.Session, error)
	Expire(ctx context.Context)
}

// Gate owns the single renew-and-retry that follows an unauthorized response.
// Every other status is handed back untouched.
type Gate struct {
	log     *logger.Logger
	tokens  TokenSource
	renewer Renewer
	doer    Doer
	tracer  trace.Tracer
}

func New(log *logger.Logger, tokens TokenSource, renewer Renewer, doer Doer) *Gate {
	return &Gate{
		log:     logger.OrNop(log).With("component", "RequestGate"),
		tokens:  tokens,
		renewer: renewer,
		doer:    doer,
		tracer:  otel.Tracer(tracerName),
	}
}

// Call issues req with the current access token. On 401 it renews once and
// retries once; a second 401 expires the session and returns an auth error.
func (g *Gate) Call(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := g.tracer.Start(ctx, "gate.call", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	))
	defer func() {
		if resp != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	token := g.tokens.AccessToken()
	if token == "" {
		return nil, apierr.Auth(apierr.ErrNotAuthenticated)
	}

	resp, err = g.do(ctx, req, token)
	if err != nil || resp.Status != http.StatusUnauthorized {
		return resp, err
	}

	span.AddEvent("renew")
	g.log.Debug("unauthorized response, renewing session", "method", req.Method, "path", req.Path)
	sess, err := g.renewer.Renew(ctx)
	if err != nil {
		return nil, apierr.Auth(fmt.Errorf("%s %s: %w", req.Method, req.Path, err))
	}

	span.SetAttributes(attribute.Bool("gate.retried", true))
	resp, err = g.do(ctx, req, sess.AccessToken)
	if err != nil || resp.Status != http.StatusUnauthorized {
		return resp, err
	}

	g.log.Warn("request unauthorized after renewal, expiring session", "method", req.Method, "path", req.Path)
	g.renewer.Expire(ctx)
	return nil, apierr.Auth(fmt.Errorf("%s %s: unauthorized after renewal", req.Method, req.Path))
}

func (g *Gate) do(ctx context.Context, req Request, token string) (*Response, error) {
	resp, err := g.doer.Do(ctx, req, token)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apierr.Transport(err)
	}
	if resp == nil {
		return nil, apierr.Transport(errors.New("no response"))
	}
	return resp, nil
}
