// Package storage resolves sound references (adhan recordings, alarm
// tones, murattal tracks) to readable audio and accepts uploads from the
// companion app. Backed by a local directory, optionally by DigitalOcean
// Spaces for shared sound packs.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

// Library is the sound-file store the schedulers resolve refs against.
type Library interface {
	// Open returns the audio bytes behind a sound ref.
	Open(ref string) (io.ReadCloser, error)

	// SaveFile stores an uploaded sound and returns its ref.
	SaveFile(fileHeader *multipart.FileHeader, filename string) (string, error)

	// List returns the refs available on this device.
	List() ([]string, error)
}

type LocalLibrary struct {
	soundDir string
}

type SpacesLibrary struct {
	client *s3.S3
	bucket string
	prefix string
}

func NewLocalLibrary(soundDir string) *LocalLibrary {
	return &LocalLibrary{soundDir: soundDir}
}

func NewSpacesLibrary(endpoint, region, bucket, accessKey, secretKey string) (*SpacesLibrary, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesLibrary{
		client: s3.New(sess),
		bucket: bucket,
		prefix: "sounds/",
	}, nil
}

// normalizeRef creates a unique, normalized filename without spaces.
func normalizeRef(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	baseName := strings.TrimSuffix(originalFilename, ext)

	baseName = strings.ReplaceAll(baseName, " ", "_")

	// keep only alphanumeric, dash, underscore
	reg := regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	baseName = reg.ReplaceAllString(baseName, "")

	if baseName == "" {
		baseName = "sound"
	}

	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s%s", baseName, timestamp, ext)
}

func (l *LocalLibrary) Open(ref string) (io.ReadCloser, error) {
	// refs are bare filenames; refuse anything trying to escape soundDir
	clean := filepath.Base(ref)
	f, err := os.Open(filepath.Join(l.soundDir, clean))
	if err != nil {
		return nil, fmt.Errorf("sound ref %q: %w", ref, err)
	}
	return f, nil
}

func (l *LocalLibrary) SaveFile(fileHeader *multipart.FileHeader, filename string) (string, error) {
	ref := normalizeRef(filename)
	log.Debug().Str("original", filename).Str("ref", ref).Msg("sound upload normalized")

	if err := os.MkdirAll(l.soundDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create sound directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(filepath.Join(l.soundDir, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create sound file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write sound file: %w", err)
	}
	return ref, nil
}

func (l *LocalLibrary) List() ([]string, error) {
	entries, err := os.ReadDir(l.soundDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var refs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		refs = append(refs, e.Name())
	}
	return refs, nil
}

func (s *SpacesLibrary) Open(ref string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + filepath.Base(ref)),
	})
	if err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("failed to fetch sound from Spaces")
		return nil, fmt.Errorf("sound ref %q: %w", ref, err)
	}
	return out.Body, nil
}

func (s *SpacesLibrary) SaveFile(fileHeader *multipart.FileHeader, filename string) (string, error) {
	ref := normalizeRef(filename)
	log.Debug().Str("original", filename).Str("ref", ref).Msg("sound upload normalized")

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() { _ = src.Close() }()

	_, err = s.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + ref),
		Body:        src,
		ContentType: aws.String(soundContentType(ref)),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to upload sound to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}
	return ref, nil
}

func (s *SpacesLibrary) List() ([]string, error) {
	out, err := s.client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to list sounds in Spaces")
		return nil, err
	}
	refs := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		refs = append(refs, strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix))
	}
	return refs, nil
}

func soundContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
