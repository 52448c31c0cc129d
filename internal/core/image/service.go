package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"freshloop/internal/pkg/common"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// JPEGMIMEType 處理後的圖片格式
const JPEGMIMEType = "image/jpeg"

// defaultMaxPixels 解碼前允許的最大像素數
const defaultMaxPixels = 40_000_000

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxDimension int
	maxPixels    int
	quality      int
}

// NewService 創建新的圖片處理服務；maxDimension 為 0 時不縮圖
func NewService(maxSizeBytes int64, maxDimension, quality int) *Service {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
		maxPixels:    defaultMaxPixels,
		quality:      quality,
	}
}

// Process 驗證上傳的圖片並轉為 JPEG
func (s *Service) Process(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, common.ErrInvalidImageFormat.WithMessage("image is empty")
	}
	// 檢查文件大小
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, common.ErrInvalidImageSize.WithMessage(
			fmt.Sprintf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes))
	}

	// 先讀標頭檢查尺寸，避免解碼超大圖片
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to read image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > s.maxPixels/cfg.Height {
		return nil, common.ErrInvalidImageSize.WithMessage(
			fmt.Sprintf("image dimensions %dx%d exceed the limit of %d pixels", cfg.Width, cfg.Height, s.maxPixels))
	}

	// 解碼圖片
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode image: %w", err))
	}

	// 檢查圖片格式
	if !isSupportedFormat(format) {
		return nil, common.ErrInvalidImageFormat.WithMessage("unsupported image format: " + format)
	}

	img = s.shrink(img)

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDataURI 取出 data URI 中的圖片位元組，不做轉檔
func (s *Service) DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, common.ErrInvalidImageFormat.WithMessage("invalid image data format")
	}

	// 解析 base64 數據
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, common.ErrInvalidImageFormat.WithMessage("invalid base64 data format")
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return decoded, nil
}

// shrink 等比例縮小到最長邊不超過 maxDimension
func (s *Service) shrink(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if s.maxDimension <= 0 || (w <= s.maxDimension && h <= s.maxDimension) {
		return img
	}
	nw, nh := s.maxDimension, h*s.maxDimension/w
	if h > w {
		nw, nh = w*s.maxDimension/h, s.maxDimension
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
