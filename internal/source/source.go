// Package source turns a GRIB2 input argument into a decodable local file.
//
// Inputs may be local paths or blob URLs understood by gocloud.dev, e.g.
//
//	s3://noaa-mrms-pds/CONUS/ReflectivityAtLowestAltitude_00.50/20250501/MRMS_ReflectivityAtLowestAltitude_00.50_20250501-120040.grib2.gz?region=us-east-1
//	file:///data/grib/refc.grib2
//
// Gzip-compressed inputs (".gz") are expanded into a temporary file next to
// the input. Every temporary file is removed by [Local.Close].
package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// inputs
	_ "gocloud.dev/blob/s3blob"   // s3:// inputs
)

// Local is a readable file on disk plus whatever temporaries were needed to produce it.
type Local struct {
	// Path is the file to hand to a decoder.
	Path string
	// Compressed reports whether Path was produced by gunzipping the input.
	Compressed bool

	temps  []string
	logger *slog.Logger
}

// Close removes every temporary file. It is safe to call more than once.
func (l *Local) Close() error {
	var errs []error
	for _, p := range l.temps {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(l.temps) > 0 {
		l.logger.Debug("removed temporary files", "count", len(l.temps))
	}
	l.temps = nil
	return errors.Join(errs...)
}

// Open resolves input to a local file, downloading and decompressing as needed.
// On error all temporaries created so far are removed.
func Open(ctx context.Context, input string, logger *slog.Logger) (*Local, error) {
	local := &Local{Path: input, logger: logger}
	if err := local.resolve(ctx, input); err != nil {
		if cerr := local.Close(); cerr != nil {
			logger.Warn("failed to remove temporary input", "error", cerr)
		}
		return nil, err
	}
	return local, nil
}

// resolve downloads and decompresses input, recording each temporary as
// soon as it exists so Close can remove it.
func (l *Local) resolve(ctx context.Context, input string) error {
	logger := l.logger

	if IsRemote(input) {
		p, err := download(ctx, input)
		if p != "" {
			l.temps = append(l.temps, p)
		}
		if err != nil {
			return err
		}
		logger.Info("downloaded input", "url", redact(input), "path", p)
		l.Path = p
	} else if _, err := os.Stat(input); err != nil {
		return pkgerrors.Wrap(err, "open input")
	}

	if strings.HasSuffix(strings.ToLower(l.Path), ".gz") {
		p, err := gunzip(l.Path)
		if p != "" {
			l.temps = append(l.temps, p)
		}
		if err != nil {
			return err
		}
		logger.Info("decompressed input", "from", l.Path, "to", p)
		l.Path = p
		l.Compressed = true
	}
	return nil
}

// IsRemote reports whether input names a blob URL rather than a local path.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return len(u.Scheme) > 1 && (u.Host != "" || u.Scheme == "file")
}

// splitBlobURL separates the bucket URL from the object key.
func splitBlobURL(input string) (bucketURL, key string, err error) {
	u, err := url.Parse(input)
	if err != nil {
		return "", "", pkgerrors.Wrapf(err, "parse input url %q", input)
	}
	if u.Scheme == "file" {
		dir, base := path.Split(u.Path)
		b := url.URL{Scheme: "file", Path: strings.TrimSuffix(dir, "/"), RawQuery: u.RawQuery}
		return b.String(), base, nil
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", pkgerrors.Errorf("input url %q has no object key", input)
	}
	b := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
	return b.String(), key, nil
}

func download(ctx context.Context, input string) (string, error) {
	bucketURL, key, err := splitBlobURL(input)
	if err != nil {
		return "", err
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "open bucket %s", redact(bucketURL))
	}
	defer bucket.Close()

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "read object %s", key)
	}
	defer r.Close()

	f, err := os.CreateTemp("", "radar-*-"+path.Base(key))
	if err != nil {
		return "", pkgerrors.Wrap(err, "create download file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return f.Name(), pkgerrors.Wrapf(err, "download %s", key)
	}
	return f.Name(), nil
}

func gunzip(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", pkgerrors.Wrap(err, "open compressed input")
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "read gzip header of %s", src)
	}
	defer zr.Close()

	out, err := createSibling(src)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, zr); err != nil {
		return out.Name(), pkgerrors.Wrapf(err, "decompress %s", src)
	}
	return out.Name(), nil
}

// createSibling creates the decompression target next to src, falling back
// to the system temp dir when that directory is not writable.
func createSibling(src string) (*os.File, error) {
	pattern := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	pattern = strings.TrimSuffix(pattern, filepath.Ext(pattern)) + "-*" + filepath.Ext(pattern)
	f, err := os.CreateTemp(filepath.Dir(src), pattern)
	if err == nil {
		return f, nil
	}
	f, err = os.CreateTemp("", pattern)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create decompressed file")
	}
	return f, nil
}

// redact drops query parameters, which may carry credentials.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
