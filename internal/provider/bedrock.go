package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/ppiankov/deskbridge/internal/redact"
)

// BedrockConfig holds parameters for an AWS Bedrock provider.
type BedrockConfig struct {
	Name    string `yaml:"name"`
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// Bedrock calls a Bedrock-hosted model through the Converse API.
// Frames go out as PNG bytes in an image content block.
type Bedrock struct {
	cfg    BedrockConfig
	client *bedrockruntime.Client
}

// NewBedrock creates a Bedrock provider using the default AWS
// credential chain.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Bedrock{
		cfg:    cfg,
		client: bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

func (p *Bedrock) Name() string { return p.cfg.Name }

func (p *Bedrock) Describe(ctx context.Context, frame *redact.Frame, prompt string) (string, error) {
	data, err := frame.PNG()
	if err != nil {
		return "", err
	}
	return p.converse(ctx, []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: prompt},
		&brtypes.ContentBlockMemberImage{Value: brtypes.ImageBlock{
			Format: brtypes.ImageFormatPng,
			Source: &brtypes.ImageSourceMemberBytes{Value: data},
		}},
	})
}

func (p *Bedrock) Plan(ctx context.Context, prompt string) (string, error) {
	return p.converse(ctx, []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: prompt},
	})
}

func (p *Bedrock) Execute(ctx context.Context, prompt string) (string, error) {
	return p.converse(ctx, []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: prompt},
	})
}

func (p *Bedrock) converse(ctx context.Context, content []brtypes.ContentBlock) (string, error) {
	out, err := p.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.cfg.ModelID),
		Messages: []brtypes.Message{
			{Role: brtypes.ConversationRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock returned unexpected output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("bedrock response contained no text block")
}
