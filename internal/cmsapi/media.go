package cmsapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

var ErrMediaNotConfigured = errors.New("media upload url is not configured")

// MediaAsset is an image stored on the media host.
type MediaAsset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// MediaFile is a file to push to the media host.
type MediaFile struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// UploadMedia sends file to the media host under folder.
func (c *Client) UploadMedia(ctx context.Context, token string, file MediaFile, folder string) (MediaAsset, error) {
	if c.mediaURL == "" {
		return MediaAsset{}, ErrMediaNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return MediaAsset{}, fmt.Errorf("upload_media: %w", err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return MediaAsset{}, fmt.Errorf("upload_media: copy file: %w", err)
	}
	if folder != "" {
		if err := mw.WriteField("folder", folder); err != nil {
			return MediaAsset{}, fmt.Errorf("upload_media: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return MediaAsset{}, fmt.Errorf("upload_media: %w", err)
	}

	var asset MediaAsset
	err = c.send(ctx, request{
		operation:   "upload_media",
		method:      http.MethodPost,
		url:         c.mediaURL,
		bearer:      token,
		body:        &body,
		contentType: mw.FormDataContentType(),
	}, &asset)
	if err != nil {
		return MediaAsset{}, err
	}
	if asset.URL == "" {
		return MediaAsset{}, errors.New("upload_media: media host returned no url")
	}
	return asset, nil
}
