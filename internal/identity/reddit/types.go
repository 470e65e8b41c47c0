package reddit

type aboutResponse struct {
	Data struct {
		Name         string  `json:"name"`
		IconImg      string  `json:"icon_img"`
		CommentKarma int64   `json:"comment_karma"`
		TotalKarma   int64   `json:"total_karma"`
		CreatedUTC   float64 `json:"created_utc"`
	} `json:"data"`
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Subreddit string `json:"subreddit"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Score     int64  `json:"score"`
	Permalink string `json:"permalink"`
}

// apiResponse is the envelope of api_type=json write endpoints. Each error is
// a [code, message, field] triple.
type apiResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}
