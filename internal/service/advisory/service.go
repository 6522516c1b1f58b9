// Package advisory validates soil analysis and crop advisory requests before
// handing them to the backend.
package advisory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const MaxImageBytes = 10 << 20

// AnalysisFailedMessage is shown when the backend could not analyze an image.
const AnalysisFailedMessage = "Analysis failed. Please ensure you are logged in and try again."

var ErrAnalysisFailed = errors.New("soil analysis failed")

type authenticator interface {
	Require() (string, error)
}

type Service struct {
	client backend.Client
	auth   authenticator
	logger *zap.Logger
}

func New(client backend.Client, auth authenticator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, auth: auth, logger: logger}
}

// CheckImage accepts non-empty image payloads up to MaxImageBytes and returns
// the detected MIME type.
func CheckImage(image []byte) (string, error) {
	if len(image) == 0 {
		return "", domain.FieldErrors{"image": "Please select an image."}
	}
	if len(image) > MaxImageBytes {
		return "", domain.FieldErrors{"image": "Image is too large."}
	}
	mt := mimetype.Detect(image)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", domain.FieldErrors{"image": "Please select an image file."}
	}
	return mt.String(), nil
}

func (s *Service) AnalyzeSoil(ctx context.Context, image []byte) (domain.SoilAnalysisResult, error) {
	if _, err := s.auth.Require(); err != nil {
		return domain.SoilAnalysisResult{}, err
	}
	mime, err := CheckImage(image)
	if err != nil {
		return domain.SoilAnalysisResult{}, err
	}
	res, err := s.client.AnalyzeSoilImage(ctx, image)
	if err != nil {
		s.logger.Warn("soil analysis failed", zap.String("mime", mime), zap.Int("bytes", len(image)), zap.Error(err))
		return domain.SoilAnalysisResult{}, errors.Join(ErrAnalysisFailed, err)
	}
	return res, nil
}

// Form is the advisory form as typed.
type Form struct {
	SoilType string `json:"soilType"`
	PHLevel  string `json:"pHLevel"`
	Moisture string `json:"moisture"`
	Region   string `json:"region"`
}

func Validate(f Form) (domain.CropAdvisoryParams, error) {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(f.SoilType) == "" {
		errs["soilType"] = "Soil type is required"
	}
	ph, err := strconv.ParseFloat(strings.TrimSpace(f.PHLevel), 64)
	if err != nil || ph < 0 || ph > 14 {
		errs["pHLevel"] = "Enter a valid pH (0–14)"
	}
	moisture, err := strconv.ParseFloat(strings.TrimSpace(f.Moisture), 64)
	if err != nil || moisture < 0 || moisture > 100 {
		errs["moisture"] = "Enter moisture % (0–100)"
	}
	if strings.TrimSpace(f.Region) == "" {
		errs["region"] = "Region is required"
	}
	if err := errs.Err(); err != nil {
		return domain.CropAdvisoryParams{}, err
	}
	return domain.CropAdvisoryParams{
		Region:   strings.TrimSpace(f.Region),
		PHLevel:  ph,
		SoilType: strings.TrimSpace(f.SoilType),
		Moisture: moisture,
	}, nil
}

func (s *Service) Advise(ctx context.Context, f Form) (domain.CropRecommendation, error) {
	params, err := Validate(f)
	if err != nil {
		return domain.CropRecommendation{}, err
	}
	rec, err := s.client.GetSmartCropAdvisory(ctx, params)
	if err != nil {
		s.logger.Warn("crop advisory failed", zap.String("region", params.Region), zap.Error(err))
		return domain.CropRecommendation{}, err
	}
	return rec, nil
}
