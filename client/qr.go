package client

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	qrcodeTerminal "github.com/Baozisoftware/qrcode-terminal-go"
	"github.com/liyue201/goqr"
)

var (
	ErrNoQRCode = errors.New("no qr code found in image")
)

// ShowQRCode prints text as a QR code on stdout.
func ShowQRCode(text string) {
	obj := qrcodeTerminal.New()
	obj.Get(text).Print()
}

// ScanQRFromFile decodes the first QR code found in a PNG or JPEG image.
func ScanQRFromFile(filePath string) (string, error) {
	imgdata, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return ScanQR(imgdata)
}

func ScanQR(imgdata []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imgdata))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	qrCodes, err := goqr.Recognize(img)
	if err != nil {
		return "", fmt.Errorf("failed to recognize qr code: %w", err)
	}
	if len(qrCodes) == 0 {
		return "", ErrNoQRCode
	}
	return string(qrCodes[0].Payload), nil
}
