/**
 * @description
 * This package provides a client for the Namecheap XML API. It covers the
 * three registrar capabilities the platform needs: availability checks,
 * registration, and placing a domain on hold after a cancelled rental.
 *
 * There is no implicit mock fallback: a client without credentials fails
 * loudly. Tests that need registrar behavior use a fake behind the
 * capability interface the app layer defines.
 */
package namecheapclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	productionBaseURL = "https://api.namecheap.com/xml.response"
	sandboxBaseURL    = "https://api.sandbox.namecheap.com/xml.response"
)

// Config carries the API credentials.
type Config struct {
	APIUser  string
	APIKey   string
	Username string
	ClientIP string
	Sandbox  bool
}

// Client is a client for the Namecheap API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Namecheap API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIUser == "" || cfg.APIKey == "" || cfg.ClientIP == "" {
		return nil, fmt.Errorf("namecheap credentials not configured")
	}
	if cfg.Username == "" {
		cfg.Username = cfg.APIUser
	}

	baseURL := productionBaseURL
	if cfg.Sandbox {
		baseURL = sandboxBaseURL
	}

	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(cfg Config, baseURL string) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c.baseURL = baseURL
	return c, nil
}

type apiResponse struct {
	XMLName xml.Name `xml:"ApiResponse"`
	Status  string   `xml:"Status,attr"`
	Errors  struct {
		Errors []apiError `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse struct {
		DomainCheckResult  *domainCheckResult  `xml:"DomainCheckResult"`
		DomainCreateResult *domainCreateResult `xml:"DomainCreateResult"`
		DomainSetHold      *domainSetHold      `xml:"DomainSetRegistrarLockResult"`
	} `xml:"CommandResponse"`
}

type apiError struct {
	Number  string `xml:"Number,attr"`
	Message string `xml:",chardata"`
}

type domainCheckResult struct {
	Domain        string `xml:"Domain,attr"`
	Available     string `xml:"Available,attr"`
	IsPremiumName string `xml:"IsPremiumName,attr"`
}

type domainCreateResult struct {
	Domain     string `xml:"Domain,attr"`
	Registered string `xml:"Registered,attr"`
	OrderID    string `xml:"OrderID,attr"`
}

type domainSetHold struct {
	Domain    string `xml:"Domain,attr"`
	IsSuccess string `xml:"IsSuccess,attr"`
}

// CheckAvailability reports whether a domain can be registered.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (bool, error) {
	resp, err := c.call(ctx, "namecheap.domains.check", url.Values{
		"DomainList": {domain},
	})
	if err != nil {
		return false, err
	}
	result := resp.CommandResponse.DomainCheckResult
	if result == nil {
		return false, fmt.Errorf("namecheap: response missing DomainCheckResult")
	}
	return strings.EqualFold(result.Available, "true"), nil
}

// Register registers a domain for one year under the given contact. The
// registrant address fields are the platform's mailing address.
// TODO: collect the registrant's own postal address and phone at checkout
// instead of using the platform contact block.
func (c *Client) Register(ctx context.Context, domain, ownerEmail, ownerName string) (string, error) {
	firstName, lastName := splitName(ownerName)

	params := url.Values{
		"DomainName": {domain},
		"Years":      {"1"},
	}
	for _, role := range []string{"Registrant", "Tech", "Admin", "AuxBilling"} {
		params.Set(role+"FirstName", firstName)
		params.Set(role+"LastName", lastName)
		params.Set(role+"Address1", "123 Main St")
		params.Set(role+"City", "Los Angeles")
		params.Set(role+"StateProvince", "CA")
		params.Set(role+"PostalCode", "90001")
		params.Set(role+"Country", "US")
		params.Set(role+"Phone", "+1.3105551234")
		params.Set(role+"EmailAddress", ownerEmail)
	}

	resp, err := c.call(ctx, "namecheap.domains.create", params)
	if err != nil {
		return "", err
	}
	result := resp.CommandResponse.DomainCreateResult
	if result == nil {
		return "", fmt.Errorf("namecheap: response missing DomainCreateResult")
	}
	if !strings.EqualFold(result.Registered, "true") {
		return "", fmt.Errorf("namecheap: registration of %s was not completed", domain)
	}
	return result.OrderID, nil
}

// Hold locks a domain at the registrar after its rental is cancelled.
func (c *Client) Hold(ctx context.Context, domain string) error {
	resp, err := c.call(ctx, "namecheap.domains.setRegistrarLock", url.Values{
		"DomainName": {domain},
		"LockAction": {"LOCK"},
	})
	if err != nil {
		return err
	}
	result := resp.CommandResponse.DomainSetHold
	if result != nil && !strings.EqualFold(result.IsSuccess, "true") {
		return fmt.Errorf("namecheap: hold on %s was not applied", domain)
	}
	return nil
}

// call executes one API command and checks the response status envelope.
func (c *Client) call(ctx context.Context, command string, extra url.Values) (*apiResponse, error) {
	params := url.Values{
		"ApiUser":  {c.cfg.APIUser},
		"ApiKey":   {c.cfg.APIKey},
		"UserName": {c.cfg.Username},
		"ClientIp": {c.cfg.ClientIP},
		"Command":  {command},
	}
	for key, values := range extra {
		params[key] = values
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create namecheap request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("namecheap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("namecheap: unexpected HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read namecheap response: %w", err)
	}

	var parsed apiResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode namecheap response: %w", err)
	}

	if !strings.EqualFold(parsed.Status, "OK") {
		if len(parsed.Errors.Errors) > 0 {
			e := parsed.Errors.Errors[0]
			return nil, fmt.Errorf("namecheap: %s (code %s)", strings.TrimSpace(e.Message), e.Number)
		}
		return nil, fmt.Errorf("namecheap: API returned status %q", parsed.Status)
	}
	return &parsed, nil
}

func splitName(fullName string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(fullName), " ", 2)
	first := "User"
	last := "Account"
	if len(parts) > 0 && parts[0] != "" {
		first = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		last = parts[1]
	}
	return first, last
}
