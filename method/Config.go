package method

import (
	"fmt"
)

// DiscountedRewardConfig describes a configuration of the
// DiscountedReward estimator
type DiscountedRewardConfig struct {
	// Discount is the geometric decay applied to bootstrapped
	// future rewards
	Discount float64 `json:"Discount"`
}

// DefaultDiscountedRewardConfig returns the default DiscountedReward
// configuration
func DefaultDiscountedRewardConfig() DiscountedRewardConfig {
	return DiscountedRewardConfig{Discount: 0.99}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c DiscountedRewardConfig) Validate() error {
	if c.Discount <= 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in (0, 1] \n\thave(%v)",
			c.Discount)
	}
	return nil
}

// PolicyGradientConfig describes a configuration of the
// PolicyGradient objective
type PolicyGradientConfig struct {
	// PolicyNode is the name of the model output holding the policy
	// logits
	PolicyNode string `json:"PolicyNode"`

	// EntropyRatio weights the entropy regularization term. Zero
	// disables it.
	EntropyRatio float64 `json:"EntropyRatio"`

	// MinProb is the probability floor applied before taking logs
	MinProb float64 `json:"MinProb"`

	// RatioClamp bounds the importance ratio against the behaviour
	// policy to [1/RatioClamp, RatioClamp]. Zero disables importance
	// correction.
	RatioClamp float64 `json:"RatioClamp"`
}

// DefaultPolicyGradientConfig returns the default PolicyGradient
// configuration
func DefaultPolicyGradientConfig() PolicyGradientConfig {
	return PolicyGradientConfig{
		PolicyNode:   "pi",
		EntropyRatio: 0.01,
		MinProb:      1e-6,
		RatioClamp:   10,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c PolicyGradientConfig) Validate() error {
	if c.PolicyNode == "" {
		return fmt.Errorf("policy node name cannot be empty")
	}
	if c.EntropyRatio < 0 {
		return fmt.Errorf("entropy ratio cannot be negative \n\thave(%v)",
			c.EntropyRatio)
	}
	if c.MinProb <= 0 || c.MinProb >= 1 {
		return fmt.Errorf("probability floor must be in (0, 1) \n\thave(%v)",
			c.MinProb)
	}
	if c.RatioClamp < 0 {
		return fmt.Errorf("ratio clamp cannot be negative \n\thave(%v)",
			c.RatioClamp)
	}
	if c.RatioClamp > 0 && c.RatioClamp < 1 {
		return fmt.Errorf("ratio clamp must be at least 1 \n\thave(%v)",
			c.RatioClamp)
	}
	return nil
}

// ActorCriticConfig describes a configuration of the ActorCritic
// update rule. The coordinator resolves its options once at
// construction; they are immutable afterwards.
type ActorCriticConfig struct {
	// NumGames is the number of trajectory instances per batch
	NumGames int `json:"NumGames"`

	// BatchSize is the number of trajectory instances advanced per
	// model invocation
	BatchSize int `json:"BatchSize"`

	// ValueNode is the name of the model output treated as the
	// state-value estimate
	ValueNode string `json:"ValueNode"`

	Reward DiscountedRewardConfig `json:"Reward"`
	PG     PolicyGradientConfig   `json:"PG"`
}

// DefaultActorCriticConfig returns the default ActorCritic
// configuration for the given number of games
func DefaultActorCriticConfig(numGames int) ActorCriticConfig {
	return ActorCriticConfig{
		NumGames:  numGames,
		BatchSize: numGames,
		ValueNode: "V",
		Reward:    DefaultDiscountedRewardConfig(),
		PG:        DefaultPolicyGradientConfig(),
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c ActorCriticConfig) Validate() error {
	if c.NumGames <= 0 {
		return fmt.Errorf("number of games must be positive \n\thave(%v)",
			c.NumGames)
	}
	if c.BatchSize != c.NumGames {
		return fmt.Errorf("batch size must match the number of games "+
			"\n\twant(%v)\n\thave(%v)", c.NumGames, c.BatchSize)
	}
	if c.ValueNode == "" {
		return fmt.Errorf("value node name cannot be empty")
	}
	if err := c.Reward.Validate(); err != nil {
		return fmt.Errorf("invalid reward configuration: %v", err)
	}
	if err := c.PG.Validate(); err != nil {
		return fmt.Errorf("invalid policy gradient configuration: %v", err)
	}
	return nil
}
