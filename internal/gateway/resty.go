package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// RestyGateway implements IGateway over the JSON REST API.
type RestyGateway struct {
	client *resty.Client
	store  credentials.IStore
}

func NewRestyGateway(config models.GatewayConfiguration, store credentials.IStore) *RestyGateway {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(time.Duration(config.TimeoutSeconds)*time.Second).
		SetRetryCount(config.RetryCount).
		SetHeader("Accept", "application/json").
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))

	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(configuration.RequestIDHeader) == "" {
			r.SetHeader(configuration.RequestIDHeader, uuid.NewString())
		}
		return nil
	})

	return &RestyGateway{client: client, store: store}
}

// request builds a request carrying the stored token as a bearer credential when there is one.
func (g *RestyGateway) request(ctx context.Context, authenticated bool) (*resty.Request, error) {
	r := g.client.R().SetContext(ctx)
	if !authenticated {
		return r, nil
	}

	token, err := g.store.Get(ctx)
	if err != nil {
		return nil, apierrors.NewNetworkError(err)
	}
	if token != "" {
		r.SetAuthToken(token)
	}
	return r, nil
}

// execute sends the request and maps the response onto the error taxonomy. rejection is the kind
// reported when the server answers with an error status.
func execute[T any](r *resty.Request, method string, path string, rejection apierrors.Kind) (T, error) {
	var result T
	var errBody models.ErrorResponse

	resp, err := r.SetResult(&result).SetError(&errBody).Execute(method, path)
	if err != nil {
		zap.L().Debug("Gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return result, apierrors.NewNetworkError(err)
	}

	if resp.IsError() {
		message := errBody.Error
		if message == "" {
			message = errBody.Message
		}
		zap.L().Debug("Gateway request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.String("request_id", resp.Request.Header.Get(configuration.RequestIDHeader)))
		return result, apierrors.NewServerRejection(rejection, resp.StatusCode(), message)
	}

	return result, nil
}

func call[T any](
	ctx context.Context,
	g *RestyGateway,
	method string,
	path string,
	body any,
	rejection apierrors.Kind,
) (T, error) {
	r, err := g.request(ctx, true)
	if err != nil {
		var zero T
		return zero, err
	}
	if body != nil {
		r.SetBody(body)
	}
	return execute[T](r, method, path, rejection)
}

func (g *RestyGateway) GetProfile(ctx context.Context) (models.User, error) {
	resp, err := call[models.UserResponse](ctx, g, http.MethodGet, configuration.EndpointProfile, nil,
		apierrors.KindServerRejection)
	return resp.User, err
}

func (g *RestyGateway) UpdateProfile(ctx context.Context, body models.ProfileUpdateBody) (models.User, error) {
	resp, err := call[models.UserResponse](ctx, g, http.MethodPut, configuration.EndpointProfile, body,
		apierrors.KindServerRejection)
	return resp.User, err
}

func (g *RestyGateway) ChangePassword(
	ctx context.Context,
	body models.PasswordChangeBody,
) (models.PasswordChangeResponse, error) {
	return call[models.PasswordChangeResponse](ctx, g, http.MethodPut, configuration.EndpointChangePassword, body,
		apierrors.KindServerRejection)
}

func (g *RestyGateway) DeleteAccount(ctx context.Context, body models.AccountDeleteBody) (models.MessageResponse, error) {
	return call[models.MessageResponse](ctx, g, http.MethodDelete, configuration.EndpointDeleteAccount, body,
		apierrors.KindInvalidPassword)
}

func (g *RestyGateway) Logout(ctx context.Context) (models.MessageResponse, error) {
	return call[models.MessageResponse](ctx, g, http.MethodPost, configuration.EndpointLogout, nil,
		apierrors.KindServerRejection)
}

func (g *RestyGateway) ListSessions(ctx context.Context) ([]models.Session, error) {
	sessions, err := call[[]models.Session](ctx, g, http.MethodGet, configuration.EndpointSessions, nil,
		apierrors.KindServerRejection)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (g *RestyGateway) CloseSession(ctx context.Context, sessionID string) (models.MessageResponse, error) {
	r, err := g.request(ctx, true)
	if err != nil {
		return models.MessageResponse{}, err
	}
	r.SetPathParam("id", sessionID)
	return execute[models.MessageResponse](r, http.MethodDelete, configuration.EndpointSession,
		apierrors.KindServerRejection)
}

func (g *RestyGateway) CloseAllSessions(ctx context.Context) (models.MessageResponse, error) {
	return call[models.MessageResponse](ctx, g, http.MethodDelete, configuration.EndpointSessions, nil,
		apierrors.KindServerRejection)
}

func (g *RestyGateway) TwoFactorStatus(ctx context.Context) (models.TwoFactorStatus, error) {
	return call[models.TwoFactorStatus](ctx, g, http.MethodGet, configuration.EndpointTwoFactorStatus, nil,
		apierrors.KindServerRejection)
}

func (g *RestyGateway) TwoFactorSetup(ctx context.Context) (models.TwoFactorSetup, error) {
	return call[models.TwoFactorSetup](ctx, g, http.MethodPost, configuration.EndpointTwoFactorSetup,
		map[string]any{}, apierrors.KindServerRejection)
}

func (g *RestyGateway) TwoFactorVerify(
	ctx context.Context,
	body models.TwoFactorVerifyBody,
) (models.TwoFactorVerifyResponse, error) {
	return call[models.TwoFactorVerifyResponse](ctx, g, http.MethodPost, configuration.EndpointTwoFactorVerify, body,
		apierrors.KindInvalidCode)
}

func (g *RestyGateway) TwoFactorDisable(
	ctx context.Context,
	body models.TwoFactorDisableBody,
) (models.MessageResponse, error) {
	return call[models.MessageResponse](ctx, g, http.MethodPost, configuration.EndpointTwoFactorOff, body,
		apierrors.KindInvalidPassword)
}

func (g *RestyGateway) TwoFactorLoginVerify(
	ctx context.Context,
	body models.TwoFactorLoginBody,
) (models.TwoFactorLoginResponse, error) {
	r, err := g.request(ctx, false)
	if err != nil {
		return models.TwoFactorLoginResponse{}, err
	}
	r.SetBody(body)
	return execute[models.TwoFactorLoginResponse](r, http.MethodPost, configuration.EndpointTwoFactorLogin,
		apierrors.KindInvalidCode)
}

var _ IGateway = (*RestyGateway)(nil)
