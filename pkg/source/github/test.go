package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"

	gogithub "github.com/google/go-github/v51/github"
)

// testServers emulate GitHup API v3 responses for consistent testing
// Refer to https://github.com/google/go-github/blob/master/github/github_test.go#L37
// and https://docs.github.com/en/rest?apiVersion=2022-11-28 for guidance on implementation
type testServer struct {
	server *httptest.Server
	mux    *http.ServeMux
}

// newTestServer constructs a testServer object
func newTestServer() *testServer {
	m := http.NewServeMux()
	s := httptest.NewServer(m)
	server := &testServer{
		server: s,
		mux:    m,
	}
	return server
}

// cleanup handles all post-test actions required to clean up a testServer
func (t *testServer) cleanup() {
	t.server.Close()
}

// url formats the testServer's URL and returns the equivalent url.URL object
func (t *testServer) url() (*url.URL, error) {
	// NOTE: go-github requires that the testServer's URL ends with a '/'
	return url.Parse(fmt.Sprintf("%s/", t.server.URL))
}

// addArbitraryHandler adds an arbitrary handler function for the provided path
func (t *testServer) addArbitraryHandler(path string, handler http.HandlerFunc) {
	t.mux.HandleFunc(path, handler)
}

// TestSource directs a normal Source object's requests to an httptest server for more predictable
// and consistent testing
type TestSource struct {
	*Source
	server *testServer
}

// NewTestSource constructs a TestSource
func NewTestSource(owner, repo string) (*TestSource, error) {
	server := newTestServer()
	serverURL, err := server.url()
	if err != nil {
		return &TestSource{}, fmt.Errorf("failed to parse server URL: %w", err)
	}
	src, err := NewSource(owner, repo, "", "")
	if err != nil {
		return &TestSource{}, err
	}
	src.client.BaseURL = serverURL
	ts := &TestSource{
		Source: src,
		server: server,
	}
	return ts, nil
}

// Cleanup handles all post-test actions required to clean up a TestSource
func (t *TestSource) Cleanup() {
	t.server.cleanup()
}

// URL returns the absolute URL of path on the test server
func (t *TestSource) URL(path string) string {
	return t.server.server.URL + path
}

// SetWarnFunc replaces the rate-limit warning callback
func (t *TestSource) SetWarnFunc(warn func(remaining int)) {
	t.rate.warn = warn
}

// buildHandlerForResponse creates a consistent handler function for the provided response.
// Responses are Marshal()'d to json prior to being written
func (t *TestSource) buildHandlerForResponse(resp interface{}) (http.HandlerFunc, error) {
	respBytes, err := json.Marshal(resp)
	if err != nil {
		return func(w http.ResponseWriter, r *http.Request) {}, err
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, string(respBytes))
	}
	return handler, nil
}

// AddResponse allows tests to specify the response they expect for the provided path
func (t *TestSource) AddResponse(path string, handler http.HandlerFunc) {
	t.server.addArbitraryHandler(path, handler)
}

// AddListBranchesResponse allows tests to specify the branches returned by ListBranches()
func (t *TestSource) AddListBranchesResponse(names ...string) error {
	branches := make([]gogithub.Branch, 0, len(names))
	for i := range names {
		branches = append(branches, gogithub.Branch{Name: &names[i]})
	}
	handler, err := t.buildHandlerForResponse(branches)
	if err != nil {
		return err
	}
	t.server.addArbitraryHandler(fmt.Sprintf("/repos/%s/%s/branches", t.Owner, t.Repo), handler)
	return nil
}

// AddWorkflowRunsResponse registers the successful workflow runs returned per branch by
// LatestSuccessfulRun(). Branches missing from runs yield an empty run list
func (t *TestSource) AddWorkflowRunsResponse(runs map[string]*gogithub.WorkflowRun) {
	t.server.addArbitraryHandler(fmt.Sprintf("/repos/%s/%s/actions/runs", t.Owner, t.Repo), func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "success" {
			http.Error(w, `{"message":"expected status=success"}`, http.StatusBadRequest)
			return
		}
		resp := gogithub.WorkflowRuns{}
		if run, found := runs[r.URL.Query().Get("branch")]; found {
			resp.WorkflowRuns = []*gogithub.WorkflowRun{run}
		}
		count := len(resp.WorkflowRuns)
		resp.TotalCount = &count
		respBytes, err := json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, string(respBytes))
	})
}

// AddArtifactsResponse serves the provided artifacts at path, which should be used as the
// artifacts_url of a workflow run
func (t *TestSource) AddArtifactsResponse(path string, artifacts []*gogithub.Artifact) error {
	total := int64(len(artifacts))
	handler, err := t.buildHandlerForResponse(gogithub.ArtifactList{
		TotalCount: &total,
		Artifacts:  artifacts,
	})
	if err != nil {
		return err
	}
	t.server.addArbitraryHandler(path, handler)
	return nil
}

// AddArtifactDownload serves contents as the zip archive of the artifact. The API endpoint
// redirects to a blob URL, as GitHub does
func (t *TestSource) AddArtifactDownload(artifact *gogithub.Artifact, contents []byte) error {
	if artifact.ID == nil {
		return fmt.Errorf("cannot add artifact download: provided Artifact has no ID defined")
	}
	blobPath := "/blobs/" + strconv.FormatInt(artifact.GetID(), 10) + ".zip"
	t.server.addArbitraryHandler(fmt.Sprintf("/repos/%s/%s/actions/artifacts/%d/zip", t.Owner, t.Repo, artifact.GetID()), func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, t.URL(blobPath), http.StatusFound)
	})
	t.server.addArbitraryHandler(blobPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(contents)))
		_, _ = w.Write(contents)
	})
	return nil
}

// AddFetchLatestReleaseResponse allows tests to specify the response they expect from the TestSource
// when calling FetchLatestRelease()
func (t *TestSource) AddFetchLatestReleaseResponse(resp gogithub.RepositoryRelease) error {
	handler, err := t.buildHandlerForResponse(resp)
	if err != nil {
		return err
	}
	t.server.addArbitraryHandler(fmt.Sprintf("/repos/%s/%s/releases/latest", t.Owner, t.Repo), handler)
	return nil
}

// AddDownloadReleaseAssetResponse allows tests to specify the contents they expect the provided asset to have
// when calling DownloadReleaseAssets()
func (t *TestSource) AddDownloadReleaseAssetResponse(asset *gogithub.ReleaseAsset, contents []byte) error {
	if asset.ID == nil {
		return fmt.Errorf("cannot add DownloadReleaseAsset response: provided ReleaseAsset has no ID defined")
	}
	t.server.addArbitraryHandler(fmt.Sprintf("/repos/%s/%s/releases/assets/%d", t.Owner, t.Repo, asset.GetID()), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(contents)
	})
	return nil
}
