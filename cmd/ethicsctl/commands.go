package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func (a *app) policyPath() string {
	return a.v.GetString("policy")
}

func (a *app) load() (ethics.Policy, error) {
	path := a.policyPath()
	policy, err := ethics.LoadPolicy(path)
	if err != nil {
		return ethics.Policy{}, err
	}
	a.logger.Debug("策略已加载", zap.String("path", path))
	return policy, nil
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the policy file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := a.load()
			if err != nil {
				return err
			}

			report := policy.Validate()
			out := cmd.OutOrStdout()
			if report.Valid {
				fmt.Fprintln(out, "policy is valid")
				return nil
			}
			for _, issue := range report.Issues {
				fmt.Fprintf(out, "- %s\n", issue)
			}
			return errInvalidPolicy
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a dotted policy path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.load()
			if err != nil {
				return err
			}

			value, ok := policy.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", ethics.ErrUnknownPath, args[0])
			}
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Update a dotted policy path and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.load()
			if err != nil {
				return err
			}

			value, err := parseScalar(args[1])
			if err != nil {
				return err
			}
			if err := policy.Update(args[0], value); err != nil {
				return err
			}
			if err := ethics.SavePolicy(a.policyPath(), policy); err != nil {
				return err
			}
			a.logger.Info("策略已更新", zap.String("path", args[0]), zap.Any("value", value))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s updated\n", args[0])
			for _, issue := range policy.Validate().Issues {
				fmt.Fprintf(out, "warning: %s\n", issue)
			}
			return nil
		},
	}
}

func (a *app) pathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List every addressable policy path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := a.load()
			if err != nil {
				return err
			}
			for _, path := range policy.Paths() {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

// parseScalar 按 YAML 标量解析命令行值
func parseScalar(raw string) (any, error) {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("解析值失败: %w", err)
	}
	if value == nil {
		return raw, nil
	}
	return value, nil
}
