// Package intake turns HTTP requests and JSON documents into feature records.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/liamcoop/cardiorisk/risk"
)

const maxMultipartMemory = 1 << 20

// ErrMalformedBody is returned for bodies that cannot be decoded at all.
var ErrMalformedBody = errors.New("malformed request body")

// Decode reads features from a JSON body or a form post. An empty body
// decodes to an empty record so validation can report every field.
func Decode(r *http.Request) (risk.PatientFeatures, error) {
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return risk.PatientFeatures{}, fmt.Errorf("%w: content type %q: %v", ErrMalformedBody, ct, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return risk.PatientFeatures{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return FromValues(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return risk.PatientFeatures{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return FromValues(r.PostForm), nil
	default:
		return DecodeJSON(r.Body)
	}
}

// DecodeJSON reads one JSON object. Unknown members are ignored.
func DecodeJSON(rd io.Reader) (risk.PatientFeatures, error) {
	var f risk.PatientFeatures
	if err := json.NewDecoder(rd).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return risk.PatientFeatures{}, nil
		}
		return risk.PatientFeatures{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return f, nil
}

// FromValues reads form values; fields not posted stay absent.
func FromValues(values url.Values) risk.PatientFeatures {
	var f risk.PatientFeatures
	for _, field := range risk.Fields {
		if vs, ok := values[string(field)]; ok && len(vs) > 0 {
			f.Set(field, risk.Text(vs[0]))
		}
	}
	return f
}
