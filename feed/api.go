package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)


const DefaultApiUrl = "https://cis.kku.ac.th/api/classroom"

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second


var ErrNoToken = errors.New("Sign in did not return a token.")


// The remote collaborator. Response shapes are tolerated, not dictated:
// every method normalizes what comes back, and a response without a usable record
// is a nil result with a nil error.
type FeedApi interface {
	SignIn(ctx context.Context, email string, password string) (*SignInResult, error)
	ListStatuses(ctx context.Context) ([]*StatusEntry, error)
	GetStatus(ctx context.Context, statusId string) (*StatusEntry, error)
	CreateStatus(ctx context.Context, content string) (*StatusEntry, error)
	DeleteStatus(ctx context.Context, statusId string) error
	AddComment(ctx context.Context, statusId string, content string) (*StatusEntry, error)
	RemoveComment(ctx context.Context, commentId string, statusId string) (*StatusEntry, error)
	Like(ctx context.Context, statusId string) (*StatusEntry, error)
	Unlike(ctx context.Context, statusId string) (*StatusEntry, error)
	GetProfile(ctx context.Context) (*Profile, error)
	ListMembers(ctx context.Context, year string) ([]*Member, error)
}


type SignInResult struct {
	Token   string
	Payload any
}


// A non-2xx response.
type ApiError struct {
	StatusCode int
	Message    string
	Data       any
}

func (self *ApiError) Error() string {
	return self.Message
}


func DefaultApiSettings() *ApiSettings {
	return &ApiSettings{
		ApiUrl:             DefaultApiUrl,
		HttpTimeout:        defaultHttpTimeout,
		HttpConnectTimeout: defaultHttpConnectTimeout,
		HttpTlsTimeout:     defaultHttpTlsTimeout,
		RequestRate:        rate.Inf,
		RequestBurst:       1,
	}
}

type ApiSettings struct {
	ApiUrl string
	// sent as `x-api-key` on every call when set
	ApiKey string

	HttpTimeout        time.Duration
	HttpConnectTimeout time.Duration
	HttpTlsTimeout     time.Duration

	// client side request rate limit. `rate.Inf` disables it
	RequestRate  rate.Limit
	RequestBurst int
}


type ClassroomApi struct {
	settings *ApiSettings

	client  *http.Client
	limiter *rate.Limiter

	stateLock sync.Mutex
	byJwt     string
}

func NewClassroomApiWithDefaults(apiUrl string) *ClassroomApi {
	settings := DefaultApiSettings()
	settings.ApiUrl = apiUrl
	return NewClassroomApi(settings)
}

func NewClassroomApi(settings *ApiSettings) *ClassroomApi {
	return &ClassroomApi{
		settings: settings,
		client:   newHttpClient(settings),
		limiter:  rate.NewLimiter(settings.RequestRate, max(1, settings.RequestBurst)),
	}
}

func newHttpClient(settings *ApiSettings) *http.Client {
	dialer := &net.Dialer{
		Timeout: settings.HttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: settings.HttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   settings.HttpTimeout,
	}
}

// this gets attached to api calls that need it
func (self *ClassroomApi) SetByJwt(byJwt string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.byJwt = byJwt
}

func (self *ClassroomApi) ByJwt() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.byJwt
}


func (self *ClassroomApi) SignIn(ctx context.Context, email string, password string) (*SignInResult, error) {
	args := map[string]string{
		"email":    email,
		"password": password,
	}
	res, err := self.call(ctx, "POST", "/signin", args)
	if err != nil {
		return nil, err
	}
	token := ""
	if r, ok := ExtractObject(res).(Record); ok {
		token, _ = r["token"].(string)
	}
	if token == "" {
		if r, ok := res.(Record); ok {
			token, _ = r["token"].(string)
		}
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return &SignInResult{
		Token:   token,
		Payload: res,
	}, nil
}

func (self *ClassroomApi) ListStatuses(ctx context.Context) ([]*StatusEntry, error) {
	res, err := self.call(ctx, "GET", "/status", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeStatuses(res), nil
}

func (self *ClassroomApi) GetStatus(ctx context.Context, statusId string) (*StatusEntry, error) {
	return self.callStatus(ctx, "GET", fmt.Sprintf("/status/%s", url.PathEscape(statusId)), nil)
}

func (self *ClassroomApi) CreateStatus(ctx context.Context, content string) (*StatusEntry, error) {
	args := map[string]string{
		"content": content,
	}
	return self.callStatus(ctx, "POST", "/status", args)
}

func (self *ClassroomApi) DeleteStatus(ctx context.Context, statusId string) error {
	_, err := self.call(ctx, "DELETE", fmt.Sprintf("/status/%s", url.PathEscape(statusId)), nil)
	return err
}

func (self *ClassroomApi) AddComment(ctx context.Context, statusId string, content string) (*StatusEntry, error) {
	args := map[string]string{
		"statusId": statusId,
		"content":  content,
	}
	return self.callStatus(ctx, "POST", "/comment", args)
}

func (self *ClassroomApi) RemoveComment(ctx context.Context, commentId string, statusId string) (*StatusEntry, error) {
	args := map[string]string{
		"statusId": statusId,
	}
	return self.callStatus(ctx, "DELETE", fmt.Sprintf("/comment/%s", url.PathEscape(commentId)), args)
}

func (self *ClassroomApi) Like(ctx context.Context, statusId string) (*StatusEntry, error) {
	args := map[string]string{
		"statusId": statusId,
	}
	return self.callStatus(ctx, "POST", "/like", args)
}

// the server unlikes with DELETE on the same route
func (self *ClassroomApi) Unlike(ctx context.Context, statusId string) (*StatusEntry, error) {
	args := map[string]string{
		"statusId": statusId,
	}
	return self.callStatus(ctx, "DELETE", "/like", args)
}

func (self *ClassroomApi) GetProfile(ctx context.Context) (*Profile, error) {
	res, err := self.call(ctx, "GET", "/profile", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeProfile(ExtractObject(res)), nil
}

func (self *ClassroomApi) ListMembers(ctx context.Context, year string) ([]*Member, error) {
	res, err := self.call(ctx, "GET", fmt.Sprintf("/class/%s", url.PathEscape(year)), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeMembers(res), nil
}


func (self *ClassroomApi) callStatus(ctx context.Context, method string, path string, args any) (*StatusEntry, error) {
	res, err := self.call(ctx, method, path, args)
	if err != nil {
		return nil, err
	}
	return NormalizeStatus(ExtractObject(res)), nil
}

func (self *ClassroomApi) call(ctx context.Context, method string, path string, args any) (any, error) {
	return TraceWithReturnError(
		fmt.Sprintf("[api]%s %s", method, path),
		func() (any, error) {
			if err := self.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return self.request(ctx, method, path, args)
		},
	)
}

func (self *ClassroomApi) buildUrl(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	apiUrl := strings.TrimRight(self.settings.ApiUrl, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return apiUrl + path
}

func (self *ClassroomApi) request(ctx context.Context, method string, path string, args any) (any, error) {
	var body io.Reader
	if args != nil {
		requestBodyBytes, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, self.buildUrl(path), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if args != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if byJwt := self.ByJwt(); byJwt != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", byJwt))
	}
	if self.settings.ApiKey != "" && req.Header.Get("x-api-key") == "" {
		req.Header.Set("x-api-key", self.settings.ApiKey)
	}

	r, err := self.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	data := parseResponseBody(responseBodyBytes)

	if r.StatusCode < 200 || 300 <= r.StatusCode {
		return nil, &ApiError{
			StatusCode: r.StatusCode,
			Message:    errorMessage(data, r),
			Data:       data,
		}
	}
	return data, nil
}

// numbers are kept as `json.Number` so large ids survive.
// A body that is not json is wrapped as `{raw: text}`
func parseResponseBody(responseBodyBytes []byte) any {
	if len(bytes.TrimSpace(responseBodyBytes)) == 0 {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(responseBodyBytes))
	decoder.UseNumber()
	var data any
	if err := decoder.Decode(&data); err != nil {
		return Record{"raw": string(responseBodyBytes)}
	}
	return data
}

func errorMessage(data any, r *http.Response) string {
	if record, ok := data.(Record); ok {
		for _, key := range []string{"message", "error", "msg"} {
			if message, ok := record[key].(string); ok && message != "" {
				return message
			}
		}
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}
