package vision

import (
	"context"
	"fmt"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

const defaultMaxResults = 20

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// CloudRecognizer 使用 Google Cloud Vision 的物体定位 (OBJECT_LOCALIZATION)
type CloudRecognizer struct {
	client     *visionapi.ImageAnnotatorClient
	annotate   annotateFunc
	maxResults int32
}

// NewCloudRecognizer 创建客户端，凭据来自 GOOGLE_APPLICATION_CREDENTIALS
func NewCloudRecognizer(ctx context.Context, maxResults int) (*CloudRecognizer, error) {
	client, err := visionapi.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision: failed to create image annotator client: %w", err)
	}
	r := newCloudRecognizer(func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return client.BatchAnnotateImages(ctx, req)
	}, maxResults)
	r.client = client
	return r, nil
}

func newCloudRecognizer(annotate annotateFunc, maxResults int) *CloudRecognizer {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &CloudRecognizer{annotate: annotate, maxResults: int32(maxResults)}
}

// Detect 识别照片中的物体
func (r *CloudRecognizer) Detect(ctx context.Context, photo []byte) ([]domain.Detection, error) {
	resp, err := r.annotate(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: photo},
			Features: []*visionpb.Feature{{
				Type:       visionpb.Feature_OBJECT_LOCALIZATION,
				MaxResults: r.maxResults,
			}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision: batch annotate: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	res := resp.GetResponses()[0]
	if res.GetError() != nil && res.GetError().GetCode() != 0 {
		return nil, fmt.Errorf("vision: annotate image: %s", res.GetError().GetMessage())
	}
	detections := toDetections(res.GetLocalizedObjectAnnotations())
	logrus.WithField("detections", len(detections)).Debug("Vision object localization finished")
	return detections, nil
}

// Close 关闭底层连接
func (r *CloudRecognizer) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// toDetections 只使用归一化坐标，与照片分辨率无关
func toDetections(annotations []*visionpb.LocalizedObjectAnnotation) []domain.Detection {
	detections := make([]domain.Detection, 0, len(annotations))
	for _, a := range annotations {
		vertices := a.GetBoundingPoly().GetNormalizedVertices()
		box := make([]domain.Vertex, 0, len(vertices))
		for _, v := range vertices {
			box = append(box, domain.Vertex{X: float64(v.GetX()), Y: float64(v.GetY())})
		}
		detections = append(detections, domain.Detection{
			Label: a.GetName(),
			Score: float64(a.GetScore()),
			Box:   box,
		})
	}
	return detections
}
