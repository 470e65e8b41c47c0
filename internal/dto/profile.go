package dto

// ExternalProfile summarises the user's account at the identity provider.
// TopFiveComments is not fetched and stays an empty list.
type ExternalProfile struct {
	Name            string         `json:"name"`
	Avatar          string         `json:"avatar"`
	CommentKarma    int64          `json:"comment_karma"`
	TotalKarma      int64          `json:"total_karma"`
	Created         int64          `json:"created"`
	TopFivePosts    []ExternalPost `json:"top_five_posts"`
	TopFiveComments []ExternalPost `json:"top_five_comments"`
}

type ExternalPost struct {
	Subreddit string `json:"subreddit"`
	URL       string `json:"url"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Score     int64  `json:"score"`
}
