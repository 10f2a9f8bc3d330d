package recognition

import (
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/visionauth/internal/constants"
)

// Failure messages reported when a recognition round-trip cannot produce a usable reply.
const (
	AnalysisFailureMessage   = "SYSTEM_ERROR: BIOMETRIC_EXTRACTION_FAILED"
	ComparisonFailureMessage = "PROTOCOL_ERROR: IDENTITY_LINK_FAILURE"
)

// Client wraps a Provider and turns every error into a fixed failure result.
// Callers never see transport or parse errors, only a non-matching result.
type Client struct {
	provider Provider
}

func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Provider returns the underlying backend.
func (c *Client) Provider() Provider {
	return c.provider
}

// AnalyzeFace checks a captured data URL for enrollment quality and liveness.
func (c *Client) AnalyzeFace(ctx context.Context, image string) Result {
	res, err := c.analyze(ctx, image)
	if err != nil {
		log.Printf("Face analysis failed (%s): %v", c.provider.Name(), err)
		return Result{Match: false, Confidence: 0, Message: AnalysisFailureMessage}
	}
	return *res
}

// VerifyIdentity compares the enrolled data URL (image 1) with a live capture (image 2).
func (c *Client) VerifyIdentity(ctx context.Context, enrolled, current string) Result {
	res, err := c.compare(ctx, enrolled, current)
	if err != nil {
		log.Printf("Identity comparison failed (%s): %v", c.provider.Name(), err)
		return Result{Match: false, Confidence: 0, Message: ComparisonFailureMessage}
	}
	return *res
}

func (c *Client) analyze(ctx context.Context, image string) (*Result, error) {
	data, err := prepareImage(image)
	if err != nil {
		return nil, err
	}
	return c.provider.AnalyzeFace(ctx, data)
}

func (c *Client) compare(ctx context.Context, enrolled, current string) (*Result, error) {
	enrolledData, err := prepareImage(enrolled)
	if err != nil {
		return nil, fmt.Errorf("enrolled image: %w", err)
	}
	currentData, err := prepareImage(current)
	if err != nil {
		return nil, fmt.Errorf("current image: %w", err)
	}
	return c.provider.CompareFaces(ctx, enrolledData, currentData)
}

func prepareImage(dataURL string) ([]byte, error) {
	data, _, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return ResizeImage(data, constants.MaxImageSize)
}
