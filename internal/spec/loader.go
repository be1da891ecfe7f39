package spec

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/mark3labs/oas2ir/internal/logging"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	VersionError    ErrorCode = "VersionError"
	ResolutionError ErrorCode = "ResolutionError"
	ValidationError ErrorCode = "ValidationError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // path inside the source tree
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// Concurrency bounds how many referenced files are read at once.
	Concurrency int
	// Validate runs kin-openapi validation over the bundled document.
	Validate bool
	Logger   logging.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		Concurrency: 8,
		Logger:      logging.Nop(),
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithConcurrency(n int) Option            { return func(s *Settings) { s.Concurrency = n } }
func WithValidation(enabled bool) Option      { return func(s *Settings) { s.Validate = enabled } }
func WithLogger(logger logging.Logger) Option { return func(s *Settings) { s.Logger = logger } }

// Load reads the document at root from fsys, bundles every file it
// references into a single self-contained document, and returns it.
//
// Swagger/OpenAPI v2 documents are rejected before any referenced file is
// read. References that cannot be resolved abort the load.
func Load(ctx context.Context, fsys fs.FS, root string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = logging.Nop()
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}

	rootPath, err := cleanLocator(root)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: %v", err), Location: root, Cause: err}
	}

	b := newBundler(fsys, rootPath, settings)
	tree, err := b.read(rootPath)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(*Object)
	if !ok {
		return nil, &SpecError{Code: ParseError, Message: "spec: document root must be a mapping", Location: rootPath}
	}

	version, err := detectSpecVersion(obj)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: rootPath, Cause: err}
	}
	if version != 3 {
		return nil, &SpecError{
			Code:     VersionError,
			Message:  "spec: Swagger/OpenAPI v2 documents are not supported; convert the document to OpenAPI 3.x",
			Location: rootPath,
		}
	}
	b.files[rootPath] = obj

	if err := b.prefetch(ctx); err != nil {
		return nil, err
	}
	doc, err := b.bundle()
	if err != nil {
		return nil, err
	}
	settings.Logger.Debug("bundled %s (%d files)", rootPath, len(b.files))

	if settings.Validate {
		if err := validateDocument(ctx, doc, settings.Logger); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(root *Object) (int, error) {
	if v, ok := root.Get("openapi"); ok {
		s := versionString(v)
		if strings.HasPrefix(s, "3.") {
			return 3, nil
		}
		if strings.HasPrefix(s, "2") {
			return 2, nil
		}
	}
	if v, ok := root.Get("swagger"); ok {
		if s := versionString(v); strings.HasPrefix(s, "2") || strings.HasPrefix(s, "1.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x')")
}

func versionString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// cleanLocator maps a root locator to a path valid inside an fs.FS.
func cleanLocator(loc string) (string, error) {
	loc = strings.TrimSpace(loc)
	if u, err := url.Parse(loc); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if !strings.EqualFold(u.Scheme, "file") {
			return "", fmt.Errorf("remote document %q is not supported; provide a path inside the source tree", loc)
		}
		loc = u.Path
	}
	p := path.Clean(strings.TrimLeft(strings.ReplaceAll(loc, "\\", "/"), "/"))
	if !fs.ValidPath(p) || p == "." {
		return "", fmt.Errorf("invalid document path %q", loc)
	}
	return p, nil
}

// joinLocator resolves ref relative to the file that contains it.
func joinLocator(from, ref string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return "", fmt.Errorf("remote reference %q is not supported", ref)
	}
	ref = strings.ReplaceAll(ref, "\\", "/")
	var p string
	if strings.HasPrefix(ref, "/") {
		p = path.Clean(strings.TrimLeft(ref, "/"))
	} else {
		p = path.Join(path.Dir(from), ref)
	}
	if !fs.ValidPath(p) || p == "." {
		return "", fmt.Errorf("reference %q escapes the source tree", ref)
	}
	return p, nil
}
