package services

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeJob turns a job body into printable text. Bridge jobs are always
// base64; realtime jobs are decoded only when the body is strict base64 of
// printable UTF-8 and are otherwise taken verbatim.
func DecodeJob(job model.PrintJob) (string, error) {
	if job.Source == model.SourceBridge {
		raw, err := decodeBase64(job.Body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: payload is not valid UTF-8", model.ErrDecodeFailure)
		}
		return string(raw), nil
	}

	if raw, err := base64.StdEncoding.Strict().DecodeString(job.Body); err == nil && isPrintable(raw) {
		return string(raw), nil
	}
	if !utf8.ValidString(job.Body) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", model.ErrDecodeFailure)
	}
	return job.Body, nil
}

func decodeBase64(body string) ([]byte, error) {
	body = strings.TrimSpace(body)
	var firstErr error
	for _, enc := range base64Encodings {
		raw, err := enc.DecodeString(body)
		if err == nil {
			return raw, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func isPrintable(raw []byte) bool {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return false
	}
	for _, r := range string(raw) {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
