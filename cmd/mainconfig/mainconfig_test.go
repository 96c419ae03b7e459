package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/muelita-bot/internal/config"
)

func TestLoadAWSConfigStaticCredentialsAndEndpoint(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:      "us-east-1",
		AWSAccessKeyID: "test",
		AWSSecretKey:   "secret",
		AWSEndpointURL: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if awsCfg.Region != "us-east-1" {
		t.Fatalf("unexpected region %s", awsCfg.Region)
	}
	if aws.ToString(awsCfg.BaseEndpoint) != "http://localhost:4566" {
		t.Fatalf("expected endpoint override, got %v", awsCfg.BaseEndpoint)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" || creds.SecretAccessKey != "secret" {
		t.Fatalf("expected static credentials, got %+v", creds)
	}
}

func TestLoadAWSConfigWithoutEndpoint(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "sa-east-1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if awsCfg.BaseEndpoint != nil {
		t.Fatalf("expected no endpoint override")
	}
}
