package dto

// RegisterRequest holds the text parts of the multipart registration form.
type RegisterRequest struct {
	FullName string `form:"fullname" json:"fullname" validate:"max=120"`
	Email    string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	Username string `form:"username" json:"username" validate:"omitempty,min=3,max=30"`
	Password string `form:"password" json:"password" validate:"max=72"`
}

// UploadedFile is a multipart part already staged on local disk.
type UploadedFile struct {
	Path     string
	Filename string
	Size     int64
}

// RegisterInput is the full registration command. Avatar is required and
// CoverImage optional; a nil pointer means the part was not sent.
type RegisterInput struct {
	RegisterRequest
	Avatar     *UploadedFile
	CoverImage *UploadedFile
}

// LoginRequest accepts either a username or an email.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the optional JSON body of the refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}
