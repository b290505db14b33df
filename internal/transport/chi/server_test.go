package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
	"github.com/kailas-cloud/tagdex/internal/repository/memory"
	healthuc "github.com/kailas-cloud/tagdex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/tagdex/internal/usecase/query"
	tagginguc "github.com/kailas-cloud/tagdex/internal/usecase/tagging"
)

type pingerStub struct{ err error }

func (p *pingerStub) Ping(context.Context) error { return p.err }

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	pinger  *pingerStub
}

func newTestEnv(t *testing.T, articleIDs ...int64) *testEnv {
	t.Helper()
	st := memory.New()
	for _, id := range articleIDs {
		st.PutArticle(domart.Reconstruct(id, fmt.Sprintf("article %d", id), "text",
			fmt.Sprintf("http://a/%d", id), []domart.Keyword{{Word: "kw", Similarity: 0.5}},
			domart.Topic{Name: "topic"}, nil))
	}
	seq := 0
	tagging := tagginguc.New(st.Articles(), st.Tags(), st.Refs()).
		WithVisibility(time.Second, time.Millisecond).
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("tag-%03d", seq)
		})
	query := queryuc.New(st.Articles(), st.Tags())
	pinger := &pingerStub{}
	srv := NewServer(tagging, query, healthuc.New(pinger, nil), zap.NewNop())
	return &testEnv{handler: NewRouter(srv, nil), store: st, pinger: pinger}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) putTag(id, name string) {
	e.store.PutTag(domtag.Reconstruct(id, name, "", time.UnixMilli(1)))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rr).Status)

	env.pinger.err = errors.New("connection refused")
	rr = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestUnknownRoute_JSON404(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, rr).Code)
}

func TestCreateAndGetTag(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/v1/tags", CreateTagRequest{Name: "C++ tricks", Description: "d"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[Tag](t, rr)
	assert.Equal(t, "tag-001", created.ID)
	assert.Equal(t, "C++ tricks", created.Name)

	rr = env.do(t, http.MethodGet, "/api/v1/tags/C%2B%2B%20tricks", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "tag-001", decode[Tag](t, rr).ID)

	rr = env.do(t, http.MethodPost, "/api/v1/tags", CreateTagRequest{Name: "C++ tricks"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, CodeAlreadyExists, decode[ErrorResponse](t, rr).Code)
}

func TestCreateTag_InvalidName(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/v1/tags", CreateTagRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeInvalidArgument, decode[ErrorResponse](t, rr).Code)
}

func TestCreateTag_UnknownField(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/v1/tags", map[string]string{"name": "x", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeBadRequest, decode[ErrorResponse](t, rr).Code)
}

func TestGetTag_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/v1/tags/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeTagNotFound, decode[ErrorResponse](t, rr).Code)
}

func TestUpdateTag(t *testing.T) {
	env := newTestEnv(t)
	env.putTag("t-go", "golang")

	rr := env.do(t, http.MethodPatch, "/api/v1/tags/golang", UpdateTagRequest{Description: "gophers"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "gophers", decode[Tag](t, rr).Description)
}

func TestAddAndRemoveTag(t *testing.T) {
	env := newTestEnv(t, 1, 2)
	env.putTag("t-go", "golang")

	rr := env.do(t, http.MethodPost, "/api/v1/tags/golang/articles", ArticleIDsRequest{IDs: []int64{1, 2}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[MutationResponse](t, rr)
	assert.Equal(t, 2, resp.Applied)
	assert.Equal(t, 0, resp.Failed)

	rr = env.do(t, http.MethodGet, "/api/v1/tags/golang/articles", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int64{1, 2}, decode[IDsResponse](t, rr).IDs)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/tags?ids=1,2&dedupe=false", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"golang", "golang"}, decode[NamesResponse](t, rr).Names)

	rr = env.do(t, http.MethodPost, "/api/v1/tags/golang/articles/remove", ArticleIDsRequest{IDs: []int64{1}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, decode[MutationResponse](t, rr).Applied)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/tags?ids=1,2", nil)
	assert.Equal(t, []string{"golang"}, decode[NamesResponse](t, rr).Names)
}

func TestAddTag_PartialFailure(t *testing.T) {
	env := newTestEnv(t, 1)
	env.putTag("t-go", "golang")

	rr := env.do(t, http.MethodPost, "/api/v1/tags/golang/articles", ArticleIDsRequest{IDs: []int64{1, 404}})
	require.Equal(t, http.StatusMultiStatus, rr.Code, rr.Body.String())
	resp := decode[MutationResponse](t, rr)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "404", resp.Items[1].ID)
	assert.Equal(t, "not_found", resp.Items[1].Status)
}

func TestAddTag_EmptyIDs(t *testing.T) {
	env := newTestEnv(t, 1)
	env.putTag("t-go", "golang")

	rr := env.do(t, http.MethodPost, "/api/v1/tags/golang/articles", ArticleIDsRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddTag_UnknownTag(t *testing.T) {
	env := newTestEnv(t, 1)
	rr := env.do(t, http.MethodPost, "/api/v1/tags/nope/articles", ArticleIDsRequest{IDs: []int64{1}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteTag_Cascades(t *testing.T) {
	env := newTestEnv(t, 1, 2)
	env.putTag("t-go", "golang")
	rr := env.do(t, http.MethodPost, "/api/v1/tags/golang/articles", ArticleIDsRequest{IDs: []int64{1, 2}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/v1/tags/golang", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[MutationResponse](t, rr).Applied)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[Article](t, rr).TagIDs)

	rr = env.do(t, http.MethodGet, "/api/v1/tags/golang", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type deleteFailingTags struct {
	*memory.Tags
	failID string
}

func (d *deleteFailingTags) Delete(ctx context.Context, id string) error {
	if id == d.failID {
		return fmt.Errorf("del %s: %w", id, domain.ErrStoreUnavailable)
	}
	return d.Tags.Delete(ctx, id)
}

func TestDeleteTag_InterruptedReportsAppliedItems(t *testing.T) {
	st := memory.New()
	st.PutArticle(domart.Reconstruct(1, "h", "t", "", nil, domart.Topic{}, []string{"a"}))
	st.PutTag(domtag.Reconstruct("a", "twin", "", time.UnixMilli(1)))
	st.PutTag(domtag.Reconstruct("b", "twin", "", time.UnixMilli(2)))
	tagging := tagginguc.New(st.Articles(), &deleteFailingTags{Tags: st.Tags(), failID: "b"}, st.Refs())
	srv := NewServer(tagging, queryuc.New(st.Articles(), st.Tags()), healthuc.New(&pingerStub{}, nil), zap.NewNop())
	env := &testEnv{handler: NewRouter(srv, nil), store: st}

	rr := env.do(t, http.MethodDelete, "/api/v1/tags/twin", nil)
	require.Equal(t, http.StatusMultiStatus, rr.Code, rr.Body.String())
	resp := decode[MutationResponse](t, rr)
	assert.Equal(t, 1, resp.Applied)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1", resp.Items[0].ID)
}

func TestTagNames_DecodedOnce(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"50% off", "50%25%20off"},
		{"100%25", "100%2525"},
		{"AC/DC", "AC%2FDC"},
		{"occurrences", "occurrences"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, 1)
			rr := env.do(t, http.MethodPost, "/api/v1/tags", CreateTagRequest{Name: tc.name})
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			base := "/api/v1/tags/" + tc.path
			rr = env.do(t, http.MethodGet, base, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tc.name, decode[Tag](t, rr).Name)

			rr = env.do(t, http.MethodPost, base+"/articles", ArticleIDsRequest{IDs: []int64{1}})
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, 1, decode[MutationResponse](t, rr).Applied)

			rr = env.do(t, http.MethodDelete, base, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			rr = env.do(t, http.MethodGet, base, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}

func TestTagNames_EscapedPercentIsDistinct(t *testing.T) {
	env := newTestEnv(t)
	env.putTag("t-pct", "100%")
	env.putTag("t-lit", "100%25")

	rr := env.do(t, http.MethodGet, "/api/v1/tags/100%2525", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "t-lit", decode[Tag](t, rr).ID)

	rr = env.do(t, http.MethodGet, "/api/v1/tags/100%25", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "t-pct", decode[Tag](t, rr).ID)
}

func TestTagOccurrences_DoesNotShadowTagNames(t *testing.T) {
	env := newTestEnv(t, 1)
	env.putTag("t-occ", "occurrences")
	rr := env.do(t, http.MethodPost, "/api/v1/tags/occurrences/articles", ArticleIDsRequest{IDs: []int64{1}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/v1/tags/occurrences", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "t-occ", decode[Tag](t, rr).ID)

	rr = env.do(t, http.MethodGet, "/api/v1/tag-occurrences", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"occurrences"}, decode[NamesResponse](t, rr).Names)
}

func TestGetArticle_EscapedID(t *testing.T) {
	env := newTestEnv(t, 1)
	rr := env.do(t, http.MethodGet, "/api/v1/articles/%31", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = env.do(t, http.MethodGet, "/api/v1/articles/%2531", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "a literal %31 is not an id")
}

func TestListTags(t *testing.T) {
	env := newTestEnv(t)
	env.putTag("t-ml", "Machine Learning")
	env.putTag("t-dl", "deep learning basics")
	env.putTag("t-go", "golang")

	rr := env.do(t, http.MethodGet, "/api/v1/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Machine Learning", "deep learning basics", "golang"}, decode[NamesResponse](t, rr).Names)

	rr = env.do(t, http.MethodGet, "/api/v1/tags?prefix=learn", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Machine Learning", "deep learning basics"}, decode[NamesResponse](t, rr).Names)

	rr = env.do(t, http.MethodGet, "/api/v1/tags?prefix=zzz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{}, decode[NamesResponse](t, rr).Names)

	rr = env.do(t, http.MethodGet, "/api/v1/tags?full=true&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[TagListResponse](t, rr)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
}

func TestBulkLoadAndQueryArticles(t *testing.T) {
	env := newTestEnv(t)

	req := BulkArticlesRequest{Articles: []ArticleRecord{
		{ID: 7, Heading: "Seven", Text: "t", URL: "http://a/7", Keywords: []Keyword{{Word: "go", Similarity: 0.9}},
			Topic: Topic{Name: "langs"}},
		{ID: 8, Heading: "Eight", Text: "t", Topic: Topic{Name: "misc"}},
	}}
	rr := env.do(t, http.MethodPost, "/api/v1/articles/bulk", req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[MutationResponse](t, rr).Applied)

	rr = env.do(t, http.MethodGet, "/api/v1/articles?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[ArticleListResponse](t, rr)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(7), list.Items[0].ID)
	assert.True(t, list.HasMore)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/urls?ids=8,7", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"", "http://a/7"}, decode[URLsResponse](t, rr).URLs)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/keywords?ids=7", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"go"}, decode[KeywordsResponse](t, rr).Keywords)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/keywords", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"go"}, decode[KeywordsResponse](t, rr).Keywords)
}

func TestBulkLoad_Empty(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/v1/articles/bulk", BulkArticlesRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetArticle_Errors(t *testing.T) {
	env := newTestEnv(t, 1)

	rr := env.do(t, http.MethodGet, "/api/v1/articles/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/v1/articles/99", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeArticleNotFound, decode[ErrorResponse](t, rr).Code)
}

func TestListTagsForArticles_RequiresIDs(t *testing.T) {
	env := newTestEnv(t, 1)
	rr := env.do(t, http.MethodGet, "/api/v1/articles/tags", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStoreUnavailable_503(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDown(fmt.Errorf("dial: %w", domain.ErrStoreUnavailable))

	rr := env.do(t, http.MethodGet, "/api/v1/tags", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, CodeStoreUnavailable, decode[ErrorResponse](t, rr).Code)
}

func TestRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, CodeInternalError, decode[ErrorResponse](t, rr).Code)
}
