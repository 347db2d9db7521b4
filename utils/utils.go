package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lostfound/imageprocessor"
)

// DefaultThreshold is the score a match needs when --threshold is not given
const DefaultThreshold = 50.0

var commands = map[string]bool{
	"search": true,
	"add":    true,
	"scan":   true,
	"stats":  true,
	"user":   true,
	"remove": true,
}

// ParseArguments converts command-line arguments (without the program name)
// into a map of flags and values. The first known command word is stored
// under "command".
func ParseArguments(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command
	commandIndex := -1
	for i, arg := range argv {
		if commands[arg] {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

// GetDefaultConfigPath returns config.yaml next to the executable when it
// exists, otherwise config.yaml in the working directory
func GetDefaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "config.yaml"
	}

	candidate := filepath.Join(filepath.Dir(exePath), "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "config.yaml"
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s search --image=PATH --category=NAME [--threshold=VALUE] [--config=PATH] [--debug]\n", prog)
	fmt.Fprintf(w, "  %s add --image=PATH --category=NAME --title=TEXT --description=TEXT --user=ID [--config=PATH]\n", prog)
	fmt.Fprintf(w, "  %s scan --category=NAME --user=ID [--config=PATH] [--debug]\n", prog)
	fmt.Fprintf(w, "  %s stats [--list] [--config=PATH]\n", prog)
	fmt.Fprintf(w, "  %s remove --category=NAME --filename=NAME [--config=PATH]\n", prog)
	fmt.Fprintf(w, "  %s user --email=ADDRESS --name=TEXT [--config=PATH]\n", prog)
	fmt.Fprintf(w, "\nParameters:\n")
	fmt.Fprintf(w, "  --image       : Path to an image file\n")
	fmt.Fprintf(w, "  --category    : Catalog category (gadget, accessory)\n")
	fmt.Fprintf(w, "  --threshold   : Minimum similarity score (0-100, default: %.0f)\n", DefaultThreshold)
	fmt.Fprintf(w, "  --title       : Item title\n")
	fmt.Fprintf(w, "  --description : Item description\n")
	fmt.Fprintf(w, "  --user        : Id of the user listing the item\n")
	fmt.Fprintf(w, "  --filename    : Stored catalog filename\n")
	fmt.Fprintf(w, "  --list        : List every item per category\n")
	fmt.Fprintf(w, "  --config      : Path to the config file (default: %s)\n", GetDefaultConfigPath())
	fmt.Fprintf(w, "  --debug       : Enable debug logging\n")
	fmt.Fprintf(w, "  --logfile     : Also write logs to this file\n")
	fmt.Fprintf(w, "\nSupported image formats: %s\n", strings.Join(imageprocessor.GetSupportedExtensions(), " "))
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s search --image=found.jpg --category=gadget\n", prog)
	fmt.Fprintf(w, "  %s add --image=ring.png --category=accessory --title=\"Gold ring\" --description=\"Found in the gym\" --user=3\n", prog)
}

// ParseThreshold parses and validates a similarity threshold
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(strings.TrimSpace(thresholdStr), 64)
	if err != nil || parsedThreshold < 0 || parsedThreshold > 100 {
		return DefaultThreshold, fmt.Errorf("invalid threshold value '%s', using default (%.0f)", thresholdStr, DefaultThreshold)
	}
	return parsedThreshold, nil
}

// ParseID parses a positive numeric id
func ParseID(idStr string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id '%s'", idStr)
	}
	return id, nil
}
