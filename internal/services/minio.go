package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"strings"
	"time"

	"atelier_back_end/internal/database"

	"github.com/minio/minio-go/v7"
)

// UploadDeliverable pousse un livrable dans le bucket sous
// orders/<orderID>/<serviceID>/<nom> et retourne son URL publique.
func UploadDeliverable(ctx context.Context, orderID, serviceID string, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	bucket := os.Getenv("MINIO_BUCKET")
	objectName := fmt.Sprintf("orders/%s/%s/%s", orderID, serviceID, file.Filename)

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	scheme := "http"
	if os.Getenv("MINIO_USE_SSL") == "true" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, os.Getenv("MINIO_ENDPOINT"), bucket, objectName), nil
}

// GenerateSignedURL : URL signée à durée limitée pour un objet du bucket.
// Accepte indifféremment l'URL publique complète ou le chemin relatif.
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	bucket := os.Getenv("MINIO_BUCKET")

	key := objectPath
	if idx := strings.Index(key, "/"+bucket+"/"); idx >= 0 {
		key = key[idx+len(bucket)+2:]
	}

	reqParams := make(url.Values)
	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, reqParams)
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}
