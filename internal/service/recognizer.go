package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// Recognizer 识别照片中的物体，返回归一化坐标下的检测结果
type Recognizer interface {
	Detect(ctx context.Context, photo []byte) ([]domain.Detection, error)
}

// DecodePhoto 去掉 data URL 前缀并解码 base64。
// 返回的 evidence 是去掉前缀后的 base64 字符串，作为证据照片保存。
func DecodePhoto(image string) (evidence string, photo []byte, err error) {
	evidence = strings.TrimSpace(image)
	if strings.HasPrefix(evidence, "data:") {
		idx := strings.Index(evidence, ",")
		if idx < 0 {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		evidence = evidence[idx+1:]
	}
	if evidence == "" {
		return "", nil, fmt.Errorf("empty image")
	}
	photo, err = base64.StdEncoding.DecodeString(evidence)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return evidence, photo, nil
}
