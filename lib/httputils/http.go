package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/go-playground/validator/v10"
)

var httpClient *http.Client

func init() {
	jar, _ := cookiejar.New(nil)
	httpClient = &http.Client{
		Jar: jar,
	}
}

// SendRequest performs the request and decodes a JSON body into T,
// running every validator over the result.
func SendRequest[T any](
	request *http.Request,
	validators ...*validator.Validate,
) (*T, error) {
	res, err := httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		buf := bytes.Buffer{}
		if _, err := io.Copy(&buf, res.Body); err != nil {
			return nil, fmt.Errorf("failed to decode error message: %w", err)
		}

		return nil, fmt.Errorf(
			"request failed\n\tstatus: %s\n\tresponse: %s",
			res.Status, buf.String(),
		)
	}

	buf := new(T)
	if err := json.NewDecoder(res.Body).Decode(buf); err != nil {
		return nil, err
	}

	for _, v := range validators {
		if err := v.Struct(buf); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// MakeJSONRequest builds a POST request carrying body as JSON.
func MakeJSONRequest(
	ctx context.Context,
	url string,
	body any,
	header map[string]string,
) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Add(k, v)
	}

	return req, nil
}
