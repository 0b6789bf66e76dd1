package helpers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/url"
	"strings"

	"accountsec/internal/configuration"

	"github.com/pquerna/otp"
)

// QR fallback size in pixels.
const qrImageSize = 200

// ProvisioningURI builds the otpauth:// URI for manual entry of a setup secret.
// The secret is opaque to the client; it is only checked to be parseable as a TOTP key.
func ProvisioningURI(issuer string, account string, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	if issuer == "" {
		issuer = configuration.AppName
	}

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", fmt.Sprint(configuration.TOTPCodeLength))
	v.Set("period", "30")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}

	key, err := otp.NewKeyFromURL(u.String())
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// RenderQRCode renders a provisioning URI as a PNG data URL. Used when the server sent no image.
func RenderQRCode(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", err
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL splits a base64 data URL such as the server's qrCode into its media type and bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL")
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mediaType, []byte(payload), nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return mediaType, data, nil
}
