package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zinye/socialflow/internal/transfer"
)

const defaultBaseURL = "https://api.linkedin.com/v2"

// Client talks to the LinkedIn REST API on behalf of a single access token.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

func NewClient(accessToken string) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests running against a local server.
func NewClientWithBaseURL(accessToken, baseURL string) *Client {
	c := NewClient(accessToken)
	c.baseURL = baseURL
	return c
}

// PersonURN builds the author URN for a personal profile.
func PersonURN(profileID string) string {
	return fmt.Sprintf("urn:li:person:%s", profileID)
}

// OrganizationURN builds the author URN for a company page.
func OrganizationURN(companyID string) string {
	return fmt.Sprintf("urn:li:organization:%s", companyID)
}

// PostIDFromURN extracts the trailing share id from a ugcPost URN.
func PostIDFromURN(urn string) string {
	parts := strings.Split(urn, ":")
	return parts[len(parts)-1]
}

// PostURL builds the public feed URL for a published share.
func PostURL(urn string) string {
	return fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", urn)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshalling payload: %w", err)
		}
		reader = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code from LinkedIn: %d: %s", resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("error parsing response: %w", err)
		}
	}
	return nil
}

func (c *Client) GetProfileInfo(ctx context.Context) (*transfer.LinkedInProfileInfo, error) {
	req, err := c.newRequest(ctx, "GET", "/me?projection=(id,firstName,lastName,profilePicture(displayImage~:playableStreams))", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		ID        string `json:"id"`
		FirstName struct {
			Localized map[string]string `json:"localized"`
		} `json:"firstName"`
		LastName struct {
			Localized map[string]string `json:"localized"`
		} `json:"lastName"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &transfer.LinkedInProfileInfo{
		ID:        result.ID,
		FirstName: firstLocalized(result.FirstName.Localized),
		LastName:  firstLocalized(result.LastName.Localized),
	}, nil
}

func (c *Client) GetOrganizationInfo(ctx context.Context, companyID string) (*transfer.LinkedInOrganizationInfo, error) {
	req, err := c.newRequest(ctx, "GET", fmt.Sprintf("/organizations/%s?projection=(id,name,logo(elements*))", companyID), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		ID   json.Number `json:"id"`
		Name struct {
			Localized map[string]string `json:"localized"`
		} `json:"name"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &transfer.LinkedInOrganizationInfo{
		ID:   result.ID.String(),
		Name: firstLocalized(result.Name.Localized),
	}, nil
}

func firstLocalized(m map[string]string) string {
	for _, v := range m {
		return v
	}
	return ""
}

type shareText struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status      string     `json:"status"`
	Media       string     `json:"media,omitempty"`
	OriginalURL string     `json:"originalUrl,omitempty"`
	Title       *shareText `json:"title,omitempty"`
	Description *shareText `json:"description,omitempty"`
}

type shareContent struct {
	ShareCommentary    shareText    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []shareMedia `json:"media,omitempty"`
}

type ugcPostRequest struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

func newUGCPost(authorURN, content, visibility string) ugcPostRequest {
	return ugcPostRequest{
		Author:         authorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    shareText{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": visibility,
		},
	}
}

func (c *Client) createUGCPost(ctx context.Context, post ugcPostRequest) (string, error) {
	req, err := c.newRequest(ctx, "POST", "/ugcPosts", post)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("no post URN returned from LinkedIn")
	}
	return result.ID, nil
}

// CreateTextPost publishes a plain text share and returns the post URN.
func (c *Client) CreateTextPost(ctx context.Context, authorURN, content, visibility string) (string, error) {
	return c.createUGCPost(ctx, newUGCPost(authorURN, content, visibility))
}

// CreateImagePost registers and uploads the image at imageURL, then
// publishes a share referencing the uploaded asset.
func (c *Client) CreateImagePost(ctx context.Context, authorURN, content, imageURL, visibility string) (string, error) {
	assetURN, err := c.uploadImage(ctx, authorURN, imageURL)
	if err != nil {
		return "", err
	}

	post := newUGCPost(authorURN, content, visibility)
	sc := post.SpecificContent["com.linkedin.ugc.ShareContent"]
	sc.ShareMediaCategory = "IMAGE"
	sc.Media = []shareMedia{
		{
			Status:      "READY",
			Media:       assetURN,
			Title:       &shareText{Text: "Image Post"},
			Description: &shareText{Text: content},
		},
	}
	post.SpecificContent["com.linkedin.ugc.ShareContent"] = sc

	return c.createUGCPost(ctx, post)
}

// CreateLinkPost publishes an article share pointing at linkURL.
func (c *Client) CreateLinkPost(ctx context.Context, authorURN, content, linkURL, linkTitle, linkDescription, visibility string) (string, error) {
	if linkTitle == "" {
		linkTitle = linkURL
	}

	post := newUGCPost(authorURN, content, visibility)
	sc := post.SpecificContent["com.linkedin.ugc.ShareContent"]
	sc.ShareMediaCategory = "ARTICLE"
	sc.Media = []shareMedia{
		{
			Status:      "READY",
			OriginalURL: linkURL,
			Title:       &shareText{Text: linkTitle},
			Description: &shareText{Text: linkDescription},
		},
	}
	post.SpecificContent["com.linkedin.ugc.ShareContent"] = sc

	return c.createUGCPost(ctx, post)
}

func (c *Client) uploadImage(ctx context.Context, ownerURN, imageURL string) (string, error) {
	registerData := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   ownerURN,
			"serviceRelationships": []map[string]string{
				{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				},
			},
		},
	}

	req, err := c.newRequest(ctx, "POST", "/assets?action=registerUpload", registerData)
	if err != nil {
		return "", err
	}

	var registered struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := c.do(req, &registered); err != nil {
		return "", fmt.Errorf("failed to register image upload: %w", err)
	}

	mechanism, ok := registered.Value.UploadMechanism["com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"]
	if !ok || mechanism.UploadURL == "" {
		return "", fmt.Errorf("no upload URL returned from LinkedIn")
	}

	imageData, err := c.downloadImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	uploadReq, err := http.NewRequestWithContext(ctx, "PUT", mechanism.UploadURL, bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("error creating upload request: %w", err)
	}
	uploadReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	uploadReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(uploadReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to upload image: %d: %s", resp.StatusCode, body)
	}

	return registered.Value.Asset, nil
}

func (c *Client) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image from %s: %d", imageURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// GetPostEngagement fetches like, comment and share counts for a post URN.
// Reposts are not exposed separately and stay zero.
func (c *Client) GetPostEngagement(ctx context.Context, postURN string) (*transfer.PostEngagement, error) {
	req, err := c.newRequest(ctx, "GET", fmt.Sprintf("/socialActions/%s", postURN), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Likes struct {
			Summary int64 `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary int64 `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Summary int64 `json:"summary"`
		} `json:"shares"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &transfer.PostEngagement{
		Likes:    result.Likes.Summary,
		Comments: result.Comments.Summary,
		Shares:   result.Shares.Summary,
	}, nil
}

// GetNetworkSize returns the first degree network size for a URN, which
// is follower count for organizations and connection count for members.
func (c *Client) GetNetworkSize(ctx context.Context, urn, edgeType string) (int64, error) {
	req, err := c.newRequest(ctx, "GET", fmt.Sprintf("/networkSizes/%s?edgeType=%s", urn, edgeType), nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		FirstDegreeSize int64 `json:"firstDegreeSize"`
	}
	if err := c.do(req, &result); err != nil {
		return 0, err
	}
	return result.FirstDegreeSize, nil
}

// GetOrganizationPageStatistics returns total and unique page views for
// a company page.
func (c *Client) GetOrganizationPageStatistics(ctx context.Context, companyID string) (pageViews, uniquePageViews int64, err error) {
	path := fmt.Sprintf("/organizationalEntityStatistics?q=organizationalEntity&organizationalEntity=%s", OrganizationURN(companyID))
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return 0, 0, err
	}

	var result struct {
		Elements []struct {
			TotalPageStatistics struct {
				Views struct {
					AllPageViews struct {
						PageViews       int64 `json:"pageViews"`
						UniquePageViews int64 `json:"uniquePageViews"`
					} `json:"allPageViews"`
				} `json:"views"`
			} `json:"totalPageStatistics"`
		} `json:"elements"`
	}
	if err := c.do(req, &result); err != nil {
		return 0, 0, err
	}

	if len(result.Elements) == 0 {
		return 0, 0, nil
	}

	views := result.Elements[0].TotalPageStatistics.Views.AllPageViews
	return views.PageViews, views.UniquePageViews, nil
}
