package vendusclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/iurnickita/vendussync/internal/service/vendusclient/config"
)

// Эндпоинты API Vendus
const (
	EndpointProducts       = "products"
	EndpointCustomers      = "customers"
	EndpointDocuments      = "documents"
	EndpointPaymentMethods = "documents/paymentmethods/"
	EndpointDocumentTypes  = "documents/types/"
	EndpointStores         = "stores"
	EndpointSuppliers      = "suppliers"
	EndpointRooms          = "rooms"
	EndpointTables         = "tables"
)

var (
	ErrAuthentication = errors.New("vendus: authentication failed")
	ErrValidation     = errors.New("vendus: request rejected")
	ErrNotFound       = errors.New("vendus: resource not found")
	ErrRateLimited    = errors.New("vendus: rate limited")
	ErrServer         = errors.New("vendus: server error")
	ErrTransport      = errors.New("vendus: transport error")
)

// Error - ошибка обращения к API. Kind - одна из ошибок выше.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

type VendusClient interface {
	Request(ctx context.Context, method string, endpoint string, params url.Values, body any) (json.RawMessage, error)
}

type vendusClient struct {
	apiKey string
	http   *resty.Client
}

// NewVendusClient - клиент без повторов: 429 и 5xx отдаются вызывающему как есть
func NewVendusClient(cfg config.Config) VendusClient {
	http := resty.New().
		SetBaseURL(cfg.URL()).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		http.SetTimeout(cfg.Timeout)
	} else {
		http.SetTimeout(config.DefaultTimeout)
	}

	return &vendusClient{apiKey: cfg.APIKey, http: http}
}

func (client *vendusClient) Request(ctx context.Context, method string, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	if client.apiKey == "" {
		return nil, &Error{Kind: ErrAuthentication, Message: "api key is not configured"}
	}
	if method == "" {
		method = http.MethodGet
	}

	setreq := client.http.R().SetContext(ctx)
	setreq.Method = method
	setreq.URL = endpoint
	if len(params) > 0 {
		setreq.SetQueryParamsFromValues(params)
	}
	setreq.SetQueryParam("api_key", client.apiKey)
	if body != nil {
		setreq.SetBody(body)
	}

	setresp, err := setreq.Send()
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Message: err.Error(), Err: err}
	}

	if setresp.IsSuccess() {
		return json.RawMessage(setresp.Body()), nil
	}
	return nil, statusError(setresp.StatusCode(), setresp.Body())
}

func statusError(status int, body []byte) error {
	var kind error
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ErrAuthentication
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status >= http.StatusInternalServerError:
		kind = ErrServer
	default:
		// 400, 415, 422 и прочие 4xx
		kind = ErrValidation
	}
	return &Error{Kind: kind, StatusCode: status, Message: errorMessage(body)}
}

// JSON ошибки Vendus: {"errors":[{"code":"...","message":"..."}]}
type errorAnswer struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

const maxMessageRunes = 200

func errorMessage(body []byte) string {
	var answer errorAnswer
	if err := json.Unmarshal(body, &answer); err == nil && len(answer.Errors) > 0 {
		messages := make([]string, 0, len(answer.Errors))
		for _, e := range answer.Errors {
			messages = append(messages, strings.TrimSpace(e.Code+" "+e.Message))
		}
		return strings.Join(messages, "; ")
	}

	// обрезка по рунам: в текстах ошибок Vendus португальские буквы
	msg := []rune(strings.TrimSpace(string(body)))
	if len(msg) > maxMessageRunes {
		msg = msg[:maxMessageRunes]
	}
	return string(msg)
}
