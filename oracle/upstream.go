package oracle

import (
	"container/list"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// DefaultBaseURL is the raw-file layout of the yannh/kubernetes-json-schema
// repository, the upstream source of per-resource definition files.
const DefaultBaseURL = "https://raw.githubusercontent.com/yannh/kubernetes-json-schema/master"

const memoCapacity = 64

// ErrOracleMiss indicates that a definition file could neither be read from
// the cache nor fetched.
var ErrOracleMiss = errors.New("schema unavailable")

// Upstream serves schema fragments from the upstream Kubernetes API bundle.
// Definition files are loaded lazily from an on-disk cache keyed by (kind,
// apiVersion group/version), optionally fetched over the network, and
// memoized in an in-memory LRU. Safe for concurrent use.
type Upstream struct {
	versionDir string
	cacheDir   string
	baseURL    string
	allowNet   bool
	client     *http.Client

	mu    sync.Mutex
	memo  map[string]*list.Element
	order *list.List
}

type memoEntry struct {
	key string
	doc *jsonschema.Schema
}

// UpstreamOption configures an [Upstream].
type UpstreamOption func(*Upstream)

// WithCacheDir overrides the resolved cache directory.
func WithCacheDir(dir string) UpstreamOption {
	return func(u *Upstream) {
		if dir != "" {
			u.cacheDir = dir
		}
	}
}

// WithNetwork enables fetching missing definition files.
func WithNetwork(allow bool) UpstreamOption {
	return func(u *Upstream) {
		u.allowNet = allow
	}
}

// WithBaseURL overrides the upstream URL layout.
func WithBaseURL(url string) UpstreamOption {
	return func(u *Upstream) {
		u.baseURL = url
	}
}

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) UpstreamOption {
	return func(u *Upstream) {
		u.client = client
	}
}

// NewUpstream creates an [Upstream] for a Kubernetes version such as
// "v1.35.0". Bare versions select the standalone-strict bundle.
func NewUpstream(version string, opts ...UpstreamOption) *Upstream {
	versionDir := version
	if !strings.Contains(versionDir, "standalone") {
		versionDir += "-standalone-strict"
	}

	u := &Upstream{
		versionDir: versionDir,
		cacheDir:   DefaultCacheDir(),
		baseURL:    DefaultBaseURL,
		client:     http.DefaultClient,
		memo:       make(map[string]*list.Element),
		order:      list.New(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// DefaultCacheDir resolves the schema cache directory: explicit override
// via HELMSCHEMA_CACHE_DIR, then XDG cache home, then the home-directory
// cache, then a cache in the current directory.
func DefaultCacheDir() string {
	if dir := os.Getenv("HELMSCHEMA_CACHE_DIR"); dir != "" {
		return dir
	}

	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "helmschema", "kubernetes-json-schema")
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".cache", "helmschema", "kubernetes-json-schema")
	}

	return filepath.Join(".cache", "helmschema", "kubernetes-json-schema")
}

// FilenameForResource maps a resource reference to its definition filename:
// "<kind>-<version>.json" for the core group, otherwise
// "<kind>-<group-with-dashes>-<version>.json".
func FilenameForResource(ref symbolic.ResourceRef) string {
	return filenameFor(ref.Kind, ref.APIVersion)
}

func filenameFor(kind, apiVersion string) string {
	kind = strings.ToLower(kind)

	group, version, ok := strings.Cut(apiVersion, "/")
	if !ok {
		return fmt.Sprintf("%s-%s.json", kind, strings.ToLower(apiVersion))
	}

	group = strings.ReplaceAll(strings.ToLower(group), ".", "-")

	return fmt.Sprintf("%s-%s-%s.json", kind, group, strings.ToLower(version))
}

// ResourceSchema implements [Oracle]. An apiVersion that expanded to
// several candidates resolves to the first candidate with a definition
// file.
func (u *Upstream) ResourceSchema(ref symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	if ref.Kind == "" {
		return nil, false
	}

	for _, apiVersion := range apiVersions(ref) {
		if doc, ok := u.loadDoc(filenameFor(ref.Kind, apiVersion)); ok {
			return doc, true
		}
	}

	return nil, false
}

// SchemaAt implements [Oracle].
func (u *Upstream) SchemaAt(ref symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool) {
	if ref.Kind == "" || len(path) == 0 {
		return nil, false
	}

	for _, apiVersion := range apiVersions(ref) {
		filename := filenameFor(ref.Kind, apiVersion)

		doc, ok := u.loadDoc(filename)
		if !ok {
			continue
		}

		file, leaf, found := descendSchema(u, filename, doc, path)
		if !found {
			continue
		}

		return expandSchema(u, file, leaf, 0, make(map[string]bool)), true
	}

	return nil, false
}

func apiVersions(ref symbolic.ResourceRef) []string {
	if ref.APIVersion != "" {
		return []string{ref.APIVersion}
	}

	return ref.APIVersionCandidates
}

// resolveRef implements refResolver: local pointers resolve against the
// current definition file, cross-file pointers lazily load their document.
func (u *Upstream) resolveRef(file, ref string) (string, *jsonschema.Schema, bool) {
	refFile, pointer, _ := strings.Cut(ref, "#")

	filename := file
	if refFile != "" {
		trimmed := strings.TrimPrefix(strings.TrimSpace(refFile), "./")
		if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}

		filename = trimmed
	}

	doc, ok := u.loadDoc(filename)
	if !ok {
		return "", nil, false
	}

	if pointer == "" {
		return filename, doc, true
	}

	target, ok := pointerTarget(doc, pointer)

	return filename, target, ok
}

func pointerTarget(doc *jsonschema.Schema, pointer string) (*jsonschema.Schema, bool) {
	if name, ok := strings.CutPrefix(pointer, "/definitions/"); ok {
		target, found := doc.Definitions[unescapePointer(name)]

		return target, found
	}

	if name, ok := strings.CutPrefix(pointer, "/$defs/"); ok {
		target, found := doc.Defs[unescapePointer(name)]

		return target, found
	}

	return nil, false
}

// loadDoc reads a definition file through the LRU memo, falling back to the
// on-disk cache and, when allowed, a single download attempt. An unreadable
// cached file is retried as a download once; otherwise it surfaces as a
// miss.
func (u *Upstream) loadDoc(filename string) (*jsonschema.Schema, bool) {
	key := u.versionDir + "/" + filename

	u.mu.Lock()

	if elem, ok := u.memo[key]; ok {
		u.order.MoveToFront(elem)
		doc := elem.Value.(*memoEntry).doc

		u.mu.Unlock()

		return doc, doc != nil
	}

	u.mu.Unlock()

	doc, err := u.readOrFetch(filename)

	u.mu.Lock()

	u.memo[key] = u.order.PushFront(&memoEntry{key: key, doc: doc})
	if u.order.Len() > memoCapacity {
		oldest := u.order.Back()
		u.order.Remove(oldest)
		delete(u.memo, oldest.Value.(*memoEntry).key)
	}

	u.mu.Unlock()

	return doc, err == nil && doc != nil
}

func (u *Upstream) readOrFetch(filename string) (*jsonschema.Schema, error) {
	local := filepath.Join(u.cacheDir, u.versionDir, filename)

	doc, err := readSchemaFile(local)
	if err == nil {
		return doc, nil
	}

	if !u.allowNet {
		return nil, fmt.Errorf("%w: %s", ErrOracleMiss, filename)
	}

	if err := u.download(filename, local); err != nil {
		return nil, err
	}

	return readSchemaFile(local)
}

// download fetches one definition file into the cache. The write goes
// through a temp file and an atomic rename so concurrent readers never see
// a partial document.
func (u *Upstream) download(filename, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", u.baseURL, u.versionDir, filename)

	resp, err := u.client.Get(url) //nolint:noctx // Single synchronous fetch; callers cancel by dropping results.
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: fetch %s: status %d", ErrOracleMiss, url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, err = io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write %s: %w", local, err)
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("rename into cache: %w", err)
	}

	return nil
}

func readSchemaFile(path string) (*jsonschema.Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Cache path is derived from configuration.
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var doc jsonschema.Schema

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}

	return &doc, nil
}
