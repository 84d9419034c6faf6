package transfer

type LinkedInUserInfo struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}

type LinkedInProfileInfo struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ProfilePicture string `json:"profile_picture"`
}

type LinkedInOrganizationInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

type PostEngagement struct {
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Shares      int64 `json:"shares"`
	Reposts     int64 `json:"reposts"`
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

type ProfileAnalytics struct {
	Followers       int64 `json:"followers"`
	Connections     int64 `json:"connections"`
	PageViews       int64 `json:"page_views"`
	UniquePageViews int64 `json:"unique_page_views"`
}

type LinkedInErrorResponse struct {
	Status           int    `json:"status"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Message          string `json:"message"`
}
