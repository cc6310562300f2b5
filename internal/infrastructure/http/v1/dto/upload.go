package dto

// UploadedFile describes one stored image.
type UploadedFile struct {
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	URL          string `json:"url"`
}

// Base64UploadRequest carries data:image/...;base64 payloads.
type Base64UploadRequest struct {
	Images []string `json:"images" binding:"required,min=1,max=9"`
}

// Base64UploadResponse lists the stored URLs in request order.
type Base64UploadResponse struct {
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}
