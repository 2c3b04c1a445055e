package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// maxDownloadBytes caps remote documents.
const maxDownloadBytes = 100 << 20

// download fetches a remote document and infers its extension from the URL path,
// falling back to the Content-Type header and finally to ".pdf".
func (e *Extractor) download(ctx context.Context, source string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", source, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", source, resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", source, err)
	}
	if len(content) > maxDownloadBytes {
		return nil, "", fmt.Errorf("download %s: larger than %d bytes", source, maxDownloadBytes)
	}
	return content, remoteExt(source, resp.Header.Get("Content-Type")), nil
}

func remoteExt(source, contentType string) string {
	if u, err := url.Parse(source); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
			return ext
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
			return ".docx"
		case "text/plain", "text/markdown":
			return ".txt"
		}
	}
	return ".pdf"
}
