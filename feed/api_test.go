package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)


type testRequest struct {
	Method        string
	Path          string
	Authorization string
	ApiKey        string
	ContentType   string
	Body          map[string]any
}


// serves canned bodies by "METHOD path" and records every request
func newTestServer(t *testing.T, responses map[string]func(w http.ResponseWriter)) (*httptest.Server, *[]testRequest) {
	requests := &[]testRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		request := testRequest{
			Method:        r.Method,
			Path:          r.URL.EscapedPath(),
			Authorization: r.Header.Get("Authorization"),
			ApiKey:        r.Header.Get("x-api-key"),
			ContentType:   r.Header.Get("Content-Type"),
		}
		if bodyBytes, err := io.ReadAll(r.Body); err == nil && 0 < len(bodyBytes) {
			json.Unmarshal(bodyBytes, &request.Body)
		}
		*requests = append(*requests, request)

		respond, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		respond(w)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func respondJson(statusCode int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		io.WriteString(w, body)
	}
}


func TestClassroomApiSignIn(t *testing.T) {
	server, requests := newTestServer(t, map[string]func(w http.ResponseWriter){
		"POST /signin": respondJson(200, `{"data": {"token": "abc"}}`),
	})

	settings := DefaultApiSettings()
	settings.ApiUrl = server.URL + "/"
	settings.ApiKey = "key"
	api := NewClassroomApi(settings)

	result, err := api.SignIn(context.Background(), "a@x.com", "secret")
	assert.Equal(t, err, nil)
	assert.Equal(t, result.Token, "abc")

	assert.Equal(t, len(*requests), 1)
	request := (*requests)[0]
	assert.Equal(t, request.Path, "/signin")
	assert.Equal(t, request.ApiKey, "key")
	assert.Equal(t, request.ContentType, "application/json")
	assert.Equal(t, request.Authorization, "")
	assert.Equal(t, request.Body["email"], "a@x.com")
	assert.Equal(t, request.Body["password"], "secret")
}

func TestClassroomApiSignInWithoutToken(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(w http.ResponseWriter){
		"POST /signin": respondJson(200, `{"data": {}}`),
	})
	api := NewClassroomApiWithDefaults(server.URL)
	_, err := api.SignIn(context.Background(), "a@x.com", "secret")
	assert.Equal(t, errors.Is(err, ErrNoToken), true)
}

func TestClassroomApiBearer(t *testing.T) {
	server, requests := newTestServer(t, map[string]func(w http.ResponseWriter){
		"GET /status": respondJson(200, `{"data": [{"_id": "s1", "content": "a"}, {"content": "no id"}, {"_id": "s2"}]}`),
	})
	api := NewClassroomApiWithDefaults(server.URL)
	api.SetByJwt("jwt1")

	statuses, err := api.ListStatuses(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, len(statuses), 2)
	assert.Equal(t, statuses[0].Content, "a")

	request := (*requests)[0]
	assert.Equal(t, request.Authorization, "Bearer jwt1")
	assert.Equal(t, request.ApiKey, "")
	// no body, no content type
	assert.Equal(t, request.ContentType, "")
}

func TestClassroomApiError(t *testing.T) {
	server, _ := newTestServer(t, map[string]func(w http.ResponseWriter){
		"POST /like":   respondJson(400, `{"message": "Already liked"}`),
		"DELETE /like": respondJson(500, `not json`),
	})
	api := NewClassroomApiWithDefaults(server.URL)

	_, err := api.Like(context.Background(), "s1")
	var apiErr *ApiError
	assert.Equal(t, errors.As(err, &apiErr), true)
	assert.Equal(t, apiErr.StatusCode, 400)
	assert.Equal(t, apiErr.Message, "Already liked")

	_, err = api.Unlike(context.Background(), "s1")
	assert.Equal(t, errors.As(err, &apiErr), true)
	assert.Equal(t, apiErr.Message, "500 Internal Server Error")
	assert.Equal(t, apiErr.Data, Record{"raw": "not json"})
}

func TestClassroomApiMutations(t *testing.T) {
	server, requests := newTestServer(t, map[string]func(w http.ResponseWriter){
		"POST /like":         respondJson(200, `{"data": {"_id": "s1", "like": ["u1"]}}`),
		"DELETE /like":       respondJson(200, `{"message": "ok"}`),
		"POST /comment":      respondJson(200, `{"data": {"_id": "s1", "comment": [{"_id": "c1", "content": "hi"}]}}`),
		"DELETE /comment/c1": respondJson(200, `{"data": {"_id": "s1"}}`),
		"DELETE /status/s1":  respondJson(204, ``),
		"GET /class/2565":    respondJson(200, `{"data": [{"_id": "m1", "name": "Kim"}]}`),
		"GET /profile":       respondJson(200, `{"data": {"_id": "u1", "email": "a@x.com"}}`),
	})
	api := NewClassroomApiWithDefaults(server.URL)
	ctx := context.Background()

	status, err := api.Like(ctx, "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status.LikeCount, 1)
	assert.Equal(t, (*requests)[0].Body["statusId"], "s1")

	// a response without a status record
	status, err = api.Unlike(ctx, "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, status == nil, true)

	status, err = api.AddComment(ctx, "s1", "hi")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(status.Comments), 1)
	assert.Equal(t, (*requests)[2].Body["content"], "hi")

	_, err = api.RemoveComment(ctx, "c1", "s1")
	assert.Equal(t, err, nil)
	assert.Equal(t, (*requests)[3].Body["statusId"], "s1")

	err = api.DeleteStatus(ctx, "s1")
	assert.Equal(t, err, nil)

	members, err := api.ListMembers(ctx, "2565")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(members), 1)

	profile, err := api.GetProfile(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, profile.Identity(), Identity{UserId: "u1", Email: "a@x.com"})
}
