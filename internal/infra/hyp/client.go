package hyp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config carries the merchant credentials for the Hyp APISign endpoint.
// Injected at construction so tests can point the client at a fake server.
// Never log these values.
type Config struct {
	BaseURL string
	Masof   string
	PassP   string
	Key     string
}

// SignRequest describes one outbound SIGN call. Amount is in minor currency
// units (agorot). Optional fields and flags are omitted from the request
// when zero-valued; the gateway treats an absent flag as false.
type SignRequest struct {
	OrderID  string
	Info     string
	Amount   int64
	Coin     int // currency code, 1 = ILS
	PageLang string

	UserID      string
	ClientName  string
	ClientLName string
	Phone       string
	Cell        string
	Email       string
	Street      string
	City        string
	Zip         string

	MoreData  bool
	Tash      int // installments
	FixTash   bool
	Tmp       int
	SendHesh  bool
	SendEmail bool
	Pritim    bool
	HeshDesc  string
}

type SignResult struct {
	RedirectURL string
	RawQuery    string
	Fields      map[string]string
}

type VerifyResult struct {
	CCode         string
	OrderID       string
	TransactionID string
	Raw           map[string]string
}

// Approved is the canonical success predicate for a gateway result code.
func Approved(ccode string) bool {
	return ccode == "0"
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, timeout time.Duration) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Sign obtains a signed payment query string from the gateway and returns
// the URL the customer must be redirected to.
func (c *Client) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	if err := c.checkCredentials("sign"); err != nil {
		return nil, err
	}

	params := c.baseParams("SIGN")
	params.Set("Order", req.OrderID)
	params.Set("Info", req.Info)
	params.Set("Amount", strconv.FormatInt(req.Amount, 10))
	coin := req.Coin
	if coin == 0 {
		coin = 1
	}
	params.Set("Coin", strconv.Itoa(coin))
	lang := req.PageLang
	if lang == "" {
		lang = "HEB"
	}
	params.Set("PageLang", lang)
	params.Set("UTF8", "True")
	params.Set("UTF8out", "True")
	params.Set("Sign", "True")

	setIfPresent(params, "UserId", req.UserID)
	setIfPresent(params, "ClientName", req.ClientName)
	setIfPresent(params, "ClientLName", req.ClientLName)
	setIfPresent(params, "phone", req.Phone)
	setIfPresent(params, "cell", req.Cell)
	setIfPresent(params, "email", req.Email)
	setIfPresent(params, "street", req.Street)
	setIfPresent(params, "city", req.City)
	setIfPresent(params, "zip", req.Zip)
	setIfPresent(params, "heshDesc", req.HeshDesc)
	if req.MoreData {
		params.Set("MoreData", "True")
	}
	if req.Tash > 0 {
		params.Set("Tash", strconv.Itoa(req.Tash))
	}
	if req.FixTash {
		params.Set("FixTash", "True")
	}
	if req.Tmp > 0 {
		params.Set("tmp", strconv.Itoa(req.Tmp))
	}
	if req.SendHesh {
		params.Set("SendHesh", "True")
	}
	if req.SendEmail {
		params.Set("sendemail", "True")
	}
	if req.Pritim {
		params.Set("Pritim", "True")
	}

	raw, fields, err := c.call(ctx, "sign", params)
	if err != nil {
		return nil, err
	}

	if fields["signature"] == "" {
		// The terminal is configured without "Verify by signature"; retrying
		// will never help.
		return nil, &GatewayError{
			Op:    "sign",
			Fatal: true,
			Err:   fmt.Errorf("gateway response has no signature field: %q", raw),
		}
	}

	return &SignResult{
		RedirectURL: c.cfg.BaseURL + "?" + raw,
		RawQuery:    raw,
		Fields:      fields,
	}, nil
}

// Verify forwards a confirmation callback's parameters back to the gateway
// and returns the gateway's own view of the transaction. A declined CCode is
// a normal result, not an error.
func (c *Client) Verify(ctx context.Context, callbackParams map[string]string) (*VerifyResult, error) {
	if err := c.checkCredentials("verify"); err != nil {
		return nil, err
	}

	// The callback's field set is echoed verbatim, empty values included,
	// so the gateway verifies exactly what it sent.
	params := c.baseParams("VERIFY")
	for k, v := range callbackParams {
		params.Set(k, v)
	}

	_, fields, err := c.call(ctx, "verify", params)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		CCode:         fields["CCode"],
		OrderID:       fields["Order"],
		TransactionID: fields["Id"],
		Raw:           fields,
	}, nil
}

func (c *Client) baseParams(what string) url.Values {
	params := url.Values{}
	params.Set("action", "APISign")
	params.Set("What", what)
	params.Set("Masof", c.cfg.Masof)
	params.Set("PassP", c.cfg.PassP)
	params.Set("KEY", c.cfg.Key)
	return params
}

func (c *Client) checkCredentials(op string) error {
	missing := ""
	switch {
	case c.cfg.BaseURL == "":
		missing = "base URL"
	case c.cfg.Masof == "":
		missing = "Masof"
	case c.cfg.PassP == "":
		missing = "PassP"
	case c.cfg.Key == "":
		missing = "KEY"
	}
	if missing == "" {
		return nil
	}
	return &GatewayError{
		Op:    op,
		Fatal: true,
		Err:   fmt.Errorf("missing merchant credential: %s", missing),
	}
}

// call performs one APISign GET and parses the flat key=value response body.
func (c *Client) call(ctx context.Context, op string, params url.Values) (string, map[string]string, error) {
	reqURL := c.cfg.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", nil, &GatewayError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &GatewayError{Op: op, Err: err}
	}
	raw := strings.TrimSpace(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, &GatewayError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, raw),
		}
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", nil, &GatewayError{Op: op, Err: fmt.Errorf("parse gateway response: %w", err)}
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return raw, fields, nil
}

func setIfPresent(params url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		params.Set(key, value)
	}
}
