package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/connscan/internal/config"
	"github.com/ludo-technologies/connscan/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a connscan configuration file",
		Long: `Generate a documented connscan configuration file.

By default, creates .connscan.yaml in the current directory with every
option written out for the chosen profile. Use --interactive for a guided
setup wizard.

Examples:
  # Create .connscan.yaml in current directory
  connscan init

  # Start from the NASA/JPL Power of Ten profile for a C code base
  connscan init --profile nasa_jpl_pot10 --project-type c

  # Overwrite existing file
  connscan init --force

  # Generate smaller config with essential options only
  connscan init --minimal

  # Interactive setup wizard
  connscan init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")
	cmd.Flags().StringP("profile", "p", constants.ProfileDefault,
		"Profile written into the config")
	cmd.Flags().String("project-type", string(config.ProjectTypeMixed),
		"Project type: mixed, python, c")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	profile, _ := cmd.Flags().GetString("profile")
	projectTypeFlag, _ := cmd.Flags().GetString("project-type")

	projectType := config.ProjectType(projectTypeFlag)
	if _, ok := config.GetProjectPresets()[projectType]; !ok {
		return fmt.Errorf("unknown project type %q", projectTypeFlag)
	}
	if err := config.ApplyProfile(config.DefaultConfig(), profile); err != nil {
		return err
	}

	if interactive {
		var err error
		profile, projectType, configPath, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate(profile)
	} else {
		content = config.GetFullConfigTemplate(projectType, profile)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'connscan analyze .' to analyze your project.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (string, config.ProjectType, string, error) {
	fmt.Println()
	fmt.Println("connscan Configuration Setup")
	fmt.Println("============================")
	fmt.Println()

	type profileItem struct {
		Label       string
		Description string
	}
	var profileItems []profileItem
	for _, name := range config.ProfileNames() {
		profileItems = append(profileItems, profileItem{Label: name, Description: config.ProfileDescription(name)})
	}

	profilePrompt := promptui.Select{
		Label: "Which profile should the analysis start from?",
		Items: profileItems,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
			Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
			Selected: "\U00002705 {{ .Label | green }}",
		},
	}
	profileIdx, _, err := profilePrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("profile selection cancelled: %w", err)
	}

	fmt.Println()

	projectTypes := config.ProjectTypes()
	projectPrompt := promptui.Select{
		Label: "Which languages does the project contain?",
		Items: projectTypes,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "\U0001F449 {{ . | cyan }}",
			Inactive: "   {{ . | white }}",
			Selected: "\U00002705 {{ . | green }}",
		},
	}
	projectIdx, _, err := projectPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("project selection cancelled: %w", err)
	}

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}
	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", outputPath)

	return profileItems[profileIdx].Label, projectTypes[projectIdx], outputPath, nil
}
