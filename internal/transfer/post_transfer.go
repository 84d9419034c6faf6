package transfer

type PostCreation struct {
	ProfileID       int64  `json:"profile_id" form:"profile_id"`
	Title           string `json:"title" form:"title"`
	Content         string `json:"content" form:"content"`
	ContentType     string `json:"content_type" form:"content_type"`
	LinkURL         string `json:"link_url" form:"link_url"`
	LinkTitle       string `json:"link_title" form:"link_title"`
	LinkDescription string `json:"link_description" form:"link_description"`
	Visibility      string `json:"visibility" form:"visibility"`
	PublishNow      bool   `json:"publish_now" form:"publish_now"`
	ScheduledTime   string `json:"scheduled_time" form:"scheduled_time"`
}

type PostReschedule struct {
	ScheduledTime string `json:"scheduled_time" form:"scheduled_time"`
}

type SettingsUpdate struct {
	DefaultVisibility string `json:"default_visibility" form:"default_visibility"`
	Timezone          string `json:"timezone" form:"timezone"`
}
