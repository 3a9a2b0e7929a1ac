package tenant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Secret reference prefixes.
const (
	SecretsManagerPrefix = "awssm:"
	ParameterStorePrefix = "ssm:"
)

// IsSecretRef reports whether ref names an AWS secret.
func IsSecretRef(ref string) bool {
	return strings.HasPrefix(ref, SecretsManagerPrefix) || strings.HasPrefix(ref, ParameterStorePrefix)
}

// SecretResolver resolves secret references to their values.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type parameterStoreAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSSecrets resolves awssm: and ssm: references with the default AWS
// credential chain. Clients are created on first use.
type AWSSecrets struct {
	once sync.Once
	err  error
	sm   secretsManagerAPI
	ps   parameterStoreAPI
}

// NewAWSSecrets creates a lazily configured resolver.
func NewAWSSecrets() *AWSSecrets {
	return &AWSSecrets{}
}

func (a *AWSSecrets) init(ctx context.Context) error {
	a.once.Do(func() {
		if a.sm != nil && a.ps != nil {
			return
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			a.err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		if a.sm == nil {
			a.sm = secretsmanager.NewFromConfig(cfg)
		}
		if a.ps == nil {
			a.ps = ssm.NewFromConfig(cfg)
		}
	})
	return a.err
}

// Resolve returns the value behind ref.
func (a *AWSSecrets) Resolve(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, SecretsManagerPrefix):
		id := strings.TrimPrefix(ref, SecretsManagerPrefix)
		if err := a.init(ctx); err != nil {
			return "", err
		}
		out, err := a.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
		if err != nil {
			return "", fmt.Errorf("failed to retrieve secret %s: %w", id, err)
		}
		if out.SecretString != nil {
			return *out.SecretString, nil
		}
		return string(out.SecretBinary), nil
	case strings.HasPrefix(ref, ParameterStorePrefix):
		name := strings.TrimPrefix(ref, ParameterStorePrefix)
		if err := a.init(ctx); err != nil {
			return "", err
		}
		out, err := a.ps.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return "", fmt.Errorf("failed to retrieve SSM parameter %s: %w", name, err)
		}
		if out.Parameter == nil || out.Parameter.Value == nil {
			return "", fmt.Errorf("SSM parameter %s has no value", name)
		}
		return *out.Parameter.Value, nil
	default:
		return "", fmt.Errorf("unsupported secret reference %q", ref)
	}
}
