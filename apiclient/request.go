package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// attempt tracks where a request is in the refresh state machine.
type attempt int

const (
	attemptInitial attempt = iota
	attemptRetried
)

func (a attempt) String() string {
	switch a {
	case attemptInitial:
		return "initial"
	case attemptRetried:
		return "retried"
	default:
		return fmt.Sprintf("attempt(%d)", int(a))
	}
}

// request is the envelope of one API call. The body is serialized once so
// the call can be resubmitted after a refresh.
type request struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	attempt attempt
}

func newRequest(method, path string, query url.Values, payload any) (*request, error) {
	req := &request{
		method:  method,
		path:    path,
		query:   query,
		attempt: attemptInitial,
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		req.body = body
	}
	return req, nil
}

func (r *request) bodyReader() io.Reader {
	if r.body == nil {
		return http.NoBody
	}
	return bytes.NewReader(r.body)
}
