// Package poolsource reads payment-address seed files used to fill the
// allocation pools at startup. Files are YAML and live on local disk or in S3.
//
//	pools:
//	  - network: trc20
//	    addresses:
//	      - TXa...
//	      - TXb...
package poolsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"
)

type Pool struct {
	Network   string   `yaml:"network"`
	Addresses []string `yaml:"addresses"`
}

type Seed struct {
	Pools []Pool `yaml:"pools"`
}

// S3Config selects the bucket endpoint and credentials. Empty keys fall back
// to the default AWS credential chain.
type S3Config struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Parse decodes a seed document. Unknown fields are rejected, blank
// addresses dropped and surrounding whitespace trimmed.
func Parse(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("parse pool seed: %w", err)
	}

	for i := range seed.Pools {
		p := &seed.Pools[i]
		p.Network = strings.TrimSpace(p.Network)
		if p.Network == "" {
			return nil, fmt.Errorf("parse pool seed: pool %d has no network", i)
		}
		kept := p.Addresses[:0]
		for _, a := range p.Addresses {
			if a = strings.TrimSpace(a); a != "" {
				kept = append(kept, a)
			}
		}
		p.Addresses = kept
	}
	return &seed, nil
}

// Load reads a seed from location: "s3://bucket/key", "file:///path" or a plain path.
func Load(ctx context.Context, location string, s3cfg S3Config) (*Seed, error) {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q", location)
		}
		return loadS3(ctx, bucket, key, s3cfg)
	}

	path := strings.TrimPrefix(location, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pool seed: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func loadS3(ctx context.Context, bucket, key string, s3cfg S3Config) (*Seed, error) {
	opts := []func(*config.LoadOptions) error{}
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	if s3cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKey, s3cfg.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
		o.UsePathStyle = s3cfg.UsePathStyle
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return Parse(out.Body)
}
