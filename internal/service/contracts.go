package service

import (
	"context"
	"encoding/json"

	"firmsite/internal/background"
	"firmsite/internal/cmsapi"
	"firmsite/internal/content"
)

// PageBackend reads and saves section content.
type PageBackend interface {
	GetPage(ctx context.Context, slug string) ([]cmsapi.RawSection, error)
	PatchSection(ctx context.Context, token, slug, sectionID string, sub *content.Submission) (json.RawMessage, error)
}

type MediaBackend interface {
	UploadMedia(ctx context.Context, token string, file cmsapi.MediaFile, folder string) (cmsapi.MediaAsset, error)
}

type ContactBackend interface {
	SubmitContact(ctx context.Context, req cmsapi.ContactRequest) error
	ListContacts(ctx context.Context, token string) ([]cmsapi.Contact, error)
	DeleteContact(ctx context.Context, token, id string) error
}

type UserBackend interface {
	ListUsers(ctx context.Context, token string) ([]cmsapi.User, error)
	CreateUser(ctx context.Context, token string, req cmsapi.CreateUserRequest) (cmsapi.User, error)
	DeleteUser(ctx context.Context, token, id string) error
}

type BlogBackend interface {
	ListPosts(ctx context.Context) ([]cmsapi.Post, error)
	GetPost(ctx context.Context, slug string) (cmsapi.Post, error)
}

// Mailer sends notification emails.
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, to, subject, html string) error
}

// JobScheduler runs work off the request path.
type JobScheduler interface {
	Schedule(job background.Job) error
}
