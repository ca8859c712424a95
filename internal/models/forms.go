package models

// Admin login steps. Each step posts one field.
type EmailForm struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

type OTPForm struct {
	OTP string `form:"otp" json:"otp" binding:"required,otp"`
}

type PasswordForm struct {
	Password string `form:"password" json:"password" binding:"required,max=256"`
}

type ContactForm struct {
	Name    string `form:"name" json:"name" binding:"required,max=120,no_html"`
	Email   string `form:"email" json:"email" binding:"required,email"`
	Phone   string `form:"phone" json:"phone" binding:"omitempty,max=40,no_html"`
	Subject string `form:"subject" json:"subject" binding:"omitempty,max=200,no_html"`
	Message string `form:"message" json:"message" binding:"required,max=5000"`
}

type CreateUserForm struct {
	Name  string `form:"name" json:"name" binding:"required,max=120,no_html"`
	Email string `form:"email" json:"email" binding:"required,email"`
	Role  string `form:"role" json:"role" binding:"required,oneof=admin editor"`
}

// PageInfo describes an editable page on the dashboard.
type PageInfo struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// SectionURI addresses one section of an editable page in admin routes.
type SectionURI struct {
	Slug    string `uri:"slug" binding:"required,slug,max=64"`
	Section string `uri:"section" binding:"required,max=64"`
}
