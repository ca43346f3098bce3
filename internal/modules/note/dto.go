package note

type CreateNoteDTO struct {
	Title      string `json:"title"   binding:"required"`
	Content    string `json:"content" binding:"required"`
	Status     string `json:"status"`
	IsPinned   *bool  `json:"is_pinned"`
	IsFavorite *bool  `json:"is_favorite"`
}

type UpdateNoteDTO struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Status     *string `json:"status"`
	IsPinned   *bool   `json:"is_pinned"`
	IsFavorite *bool   `json:"is_favorite"`
}
