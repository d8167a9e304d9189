package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/utils"
)

// AvatarService renders deterministic initials avatars for users and
// personas that have no generated portrait yet. Files land in the local
// media dir and are served under the /media route.
type AvatarService interface {
	GenerateAvatarPNG(name string) ([]byte, error)
	SaveAvatar(name string) (string, error)
}

type avatarService struct {
	log          *logger.Logger
	mediaDir     string
	publicPrefix string
	bgColors     []color.NRGBA
	fontFace     font.Face
}

func NewAvatarService(log *logger.Logger) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	mediaDir := utils.GetEnv("MEDIA_DIR", "./media", log)
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("Failed to create media dir: %w", err)
	}

	parsed, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse avatar font: %w", err)
	}
	face := truetype.NewFace(parsed, &truetype.Options{Size: 220})

	return &avatarService{
		log:          serviceLog,
		mediaDir:     mediaDir,
		publicPrefix: "/media",
		bgColors: []color.NRGBA{
			{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
			{R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
			{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
			{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
			{R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
			{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
			{R: 0x0d, G: 0x94, B: 0x88, A: 0xff},
		},
		fontFace: face,
	}, nil
}

func (as *avatarService) GenerateAvatarPNG(name string) ([]byte, error) {
	const renderSize = 512
	const finalSize = 256

	bg := as.bgColors[colorIndex(name, len(as.bgColors))]

	dc := gg.NewContext(renderSize, renderSize)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(as.fontFace)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(initials(name), renderSize/2, renderSize/2, 0.5, 0.5)

	// render oversized, then downscale for smoother glyph edges
	src := dc.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, finalSize, finalSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("Failed to encode avatar png: %w", err)
	}
	return buf.Bytes(), nil
}

func (as *avatarService) SaveAvatar(name string) (string, error) {
	raw, err := as.GenerateAvatarPNG(name)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("avatar_%s.png", uuid.New().String())
	if err := os.WriteFile(filepath.Join(as.mediaDir, filename), raw, 0o644); err != nil {
		return "", fmt.Errorf("Failed to write avatar file: %w", err)
	}
	return as.publicPrefix + "/" + filename, nil
}

func initials(name string) string {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "?"
	}
	out := strings.ToUpper(firstRune(parts[0]))
	if len(parts) > 1 {
		out += strings.ToUpper(firstRune(parts[len(parts)-1]))
	}
	return out
}

// firstRune keeps multi-byte characters intact; a byte slice would split
// names like "Ámbar" into invalid UTF-8.
func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return "?"
	}
	return s[:size]
}

func colorIndex(name string, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	if sum < 0 {
		sum = -sum
	}
	return sum % buckets
}
