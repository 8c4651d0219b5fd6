package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

const (
	// maxFileSizeBytes is the Vision API limit for synchronous processing.
	maxFileSizeBytes = 20 * 1024 * 1024

	// maxPagesSync is the Vision API page limit for synchronous PDFs.
	maxPagesSync = 5
)

// GoogleVisionService implements Service using the Cloud Vision API. It
// accepts PDFs and common image formats, since facturas arrive both as
// electronic PDFs and as phone photos.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates an OCR service with credentials from the
// environment: GOOGLE_CREDENTIALS (inline JSON) first, then
// GOOGLE_APPLICATION_CREDENTIALS, then application default credentials.
func NewGoogleVisionService(ctx context.Context) (*GoogleVisionService, error) {
	const op = "NewGoogleVisionService"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapError(op, err, "failed to create Vision client")
	}

	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates an OCR service with an explicit
// client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionService {
	return &GoogleVisionService{client: client}
}

// ReadDocument extracts text from a PDF or image document.
func (g *GoogleVisionService) ReadDocument(ctx context.Context, doc io.Reader) (*Result, error) {
	const op = "ReadDocument"
	start := time.Now()

	data, err := io.ReadAll(doc)
	if err != nil {
		return nil, WrapError(op, err, "failed to read document")
	}
	if len(data) > maxFileSizeBytes {
		return nil, WrapError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	mime := detectMIME(data)
	if mime == "" {
		return nil, WrapError(op, ErrUnsupportedFormat, "expected PDF, JPEG or PNG")
	}

	var result *Result
	if mime == "application/pdf" {
		result, err = g.readPDF(ctx, data)
	} else {
		result, err = g.readImage(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	result.ProcessedAt = time.Now()
	result.Duration = result.ProcessedAt.Sub(start)
	return result, nil
}

func (g *GoogleVisionService) readPDF(ctx context.Context, data []byte) (*Result, error) {
	const op = "readPDF"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{
				Content:  data,
				MimeType: "application/pdf",
			},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		}},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapError(op, ErrOCRFailed, "no response from Vision API")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapError(op, ErrOCRFailed, fileResp.Error.Message)
	}

	pageCount := len(fileResp.Responses)
	if pageCount > maxPagesSync {
		return nil, WrapError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	var text strings.Builder
	var confSum float32
	var confCount int
	for i, page := range fileResp.Responses {
		if page.Error != nil {
			return nil, WrapError(op, ErrOCRFailed, fmt.Sprintf("page %d: %s", i+1, page.Error.Message))
		}
		if page.FullTextAnnotation == nil {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(page.FullTextAnnotation.Text)
		for _, ann := range page.TextAnnotations {
			if ann.Confidence > 0 {
				confSum += ann.Confidence
				confCount++
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, WrapError(op, ErrEmptyDocument, "")
	}

	var confidence float32
	if confCount > 0 {
		confidence = confSum / float32(confCount)
	}
	return &Result{Text: text.String(), PageCount: pageCount, Confidence: confidence}, nil
}

func (g *GoogleVisionService) readImage(ctx context.Context, data []byte) (*Result, error) {
	const op = "readImage"

	resp, err := g.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: data},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
			ImageContext: &visionpb.ImageContext{
				LanguageHints: []string{"es"},
			},
		}},
	})
	if err != nil {
		return nil, WrapError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapError(op, ErrOCRFailed, "no response from Vision API")
	}
	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, WrapError(op, ErrOCRFailed, imgResp.Error.Message)
	}
	if imgResp.FullTextAnnotation == nil || strings.TrimSpace(imgResp.FullTextAnnotation.Text) == "" {
		return nil, WrapError(op, ErrEmptyDocument, "")
	}

	var confSum float32
	var confCount int
	for _, ann := range imgResp.TextAnnotations {
		if ann.Confidence > 0 {
			confSum += ann.Confidence
			confCount++
		}
	}
	var confidence float32
	if confCount > 0 {
		confidence = confSum / float32(confCount)
	}

	return &Result{
		Text:       imgResp.FullTextAnnotation.Text,
		PageCount:  1,
		Confidence: confidence,
	}, nil
}

// detectMIME recognizes the document formats the pipeline accepts.
func detectMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return "application/pdf"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	}
	return ""
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
