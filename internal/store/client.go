package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// Client reaches a remote store over its HTTP collection API
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       BasicAuth
	email      string
}

// NewClient creates a Client for the store at baseURL
func NewClient(baseURL string, auth BasicAuth) *Client {
	return NewClientWithHTTP(baseURL, auth, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a Client using a custom http.Client
func NewClientWithHTTP(baseURL string, auth BasicAuth, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		auth:       auth,
	}
}

// ForUser returns a copy of the client scoped to email's records
func (c *Client) ForUser(email string) bill.Store {
	scoped := *c
	scoped.email = email
	return &scoped
}

// Collection implements bill.Store
func (c *Client) Collection(name string) bill.Collection {
	return &remoteCollection{client: c, path: "/api/" + url.PathEscape(name)}
}

type remoteCollection struct {
	client *Client
	path   string
}

func (rc *remoteCollection) List(ctx context.Context) ([]bill.Bill, error) {
	u := rc.client.baseURL + rc.path
	if rc.client.email != "" {
		u += "?" + url.Values{"email": {rc.client.email}}.Encode()
	}

	var bills []bill.Bill
	if err := rc.client.do(ctx, http.MethodGet, u, "", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

func (rc *remoteCollection) Update(ctx context.Context, id string, b bill.Bill) (bill.Bill, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("marshaling bill: %w", err)
	}

	var saved bill.Bill
	u := rc.client.baseURL + rc.path + "/" + url.PathEscape(id)
	if err := rc.client.do(ctx, http.MethodPatch, u, "application/json", bytes.NewReader(body), &saved); err != nil {
		return bill.Bill{}, err
	}
	return saved, nil
}

func (rc *remoteCollection) Create(ctx context.Context, upload bill.Upload) (bill.Created, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(upload.FileName)))
	ct := upload.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := writer.CreatePart(h)
	if err != nil {
		return bill.Created{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return bill.Created{}, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.WriteField("email", upload.Email); err != nil {
		return bill.Created{}, fmt.Errorf("writing email field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return bill.Created{}, fmt.Errorf("closing form: %w", err)
	}

	var created bill.Created
	if err := rc.client.do(ctx, http.MethodPost, rc.client.baseURL+rc.path, writer.FormDataContentType(), &body, &created); err != nil {
		return bill.Created{}, err
	}
	return created, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// do sends a request and decodes a JSON response into out. Non-2xx
// responses become *bill.RemoteError.
func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.auth.Username != "" || c.auth.Password != "" {
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &bill.RemoteError{Code: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
