package param

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
)

var params *Params
var awsSession *session.Session

var paramLookup = map[string]string{
	"ANTHROPIC_API_KEY":        "/nanoclaw/anthropic_api_key",
	"PLANNER_BASE_URL":         "/nanoclaw/planner_base_url",
	"COMPLETION_MODEL":         "",
	"REASONING_MODEL":          "",
	"GROQ_API_KEY":             "/nanoclaw/groq_api_key",
	"GROQ_MODEL":               "",
	"OLLAMA_HOST":              "",
	"OLLAMA_MODEL":             "",
	"PG_URI":                   "/nanoclaw/pg_uri",
	"DATA_DIR":                 "",
	"NOTES_DIR":                "",
	"TRIGGER_PREFIX":           "",
	"RUNNER_URL":               "/nanoclaw/runner_url",
	"RUNNER_SECRET":            "/nanoclaw/runner_secret",
	"DISPATCH_SECRET":          "/nanoclaw/dispatch_secret",
	"DISPATCH_TIMEOUT_SECONDS": "",
	"SCHEDULER_TIMEZONE":       "",
	"ENABLE_APPROVED_EXECUTION": "",
	"SLACK_BOT_TOKEN":          "/nanoclaw/slack_bot_token",
	"SLACK_APP_TOKEN":          "/nanoclaw/slack_app_token",
	"MAX_PARALLEL":             "",
	"RUNNER_PORT":              "",
	"SSH_WILLIAM_ADDR":         "/nanoclaw/ssh_william_addr",
	"SSH_WILLIAM_USER":         "/nanoclaw/ssh_william_user",
	"SSH_WILLIAM_KEY_PATH":     "/nanoclaw/ssh_william_key_path",
	"SSH_WILLY_UBUNTU_ADDR":     "/nanoclaw/ssh_willy_ubuntu_addr",
	"SSH_WILLY_UBUNTU_USER":     "/nanoclaw/ssh_willy_ubuntu_user",
	"SSH_WILLY_UBUNTU_KEY_PATH": "/nanoclaw/ssh_willy_ubuntu_key_path",
	"MEDIA_FORWARD_ENDPOINT":   "/nanoclaw/media_forward_endpoint",
	"MEDIA_FORWARD_TOKEN":      "/nanoclaw/media_forward_token",
	"OPENCODE_ENDPOINT":        "/nanoclaw/opencode_endpoint",
}

// Params holds every environment-derived setting the core reads.
// Fields map 1:1 to the "Environment variables" table in the core spec.
type Params struct {
	AnthropicAPIKey string
	PlannerBaseURL  string
	CompletionModel string
	ReasoningModel  string

	GroqAPIKey    string
	GroqModel     string
	OllamaBaseURL string
	OllamaModel   string

	PGURI   string
	DataDir string

	NotesDir string

	TriggerPrefix string

	RunnerURL     string
	RunnerSecret  string
	DispatchSecret string
	DispatchTimeout time.Duration

	SchedulerTimezone string

	EnableApprovedExecution bool

	SlackBotToken string
	SlackAppToken string

	MaxParallel int
	RunnerPort  int

	SSHWilliamAddr    string
	SSHWilliamUser    string
	SSHWilliamKeyPath string

	SSHWillyUbuntuAddr    string
	SSHWillyUbuntuUser    string
	SSHWillyUbuntuKeyPath string

	MediaForwardEndpoint string
	MediaForwardToken    string

	OpencodeEndpoint string
}

func Get() Params {
	if params == nil {
		panic("params not initialized")
	}
	return *params
}

func Init(sess *session.Session) error {
	awsSession = sess

	var paramsMap map[string]string
	if os.Getenv("USE_EC2_PARAMETERS") != "" {
		p, err := GetParamsFromSSM(paramLookup)
		if err != nil {
			return fmt.Errorf("get from ssm: %w", err)
		}
		paramsMap = p
	} else {
		paramsMap = GetParamsFromEnv(paramLookup)
	}

	dataDir := paramsMap["DATA_DIR"]
	if dataDir == "" {
		dataDir = "./data"
	}

	timeout := 10 * time.Second
	if v := paramsMap["DISPATCH_TIMEOUT_SECONDS"]; v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	tz := paramsMap["SCHEDULER_TIMEZONE"]
	if tz == "" {
		tz = "UTC"
	}

	maxParallel := 4
	if v := paramsMap["MAX_PARALLEL"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxParallel = n
		}
	}

	enableExec := false
	if v := paramsMap["ENABLE_APPROVED_EXECUTION"]; v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			enableExec = b
		}
	}

	runnerPort := 8090
	if v := paramsMap["RUNNER_PORT"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runnerPort = n
		}
	}

	params = &Params{
		AnthropicAPIKey:         paramsMap["ANTHROPIC_API_KEY"],
		PlannerBaseURL:          paramsMap["PLANNER_BASE_URL"],
		CompletionModel:         paramsMap["COMPLETION_MODEL"],
		ReasoningModel:          paramsMap["REASONING_MODEL"],
		GroqAPIKey:              paramsMap["GROQ_API_KEY"],
		GroqModel:               paramsMap["GROQ_MODEL"],
		OllamaBaseURL:           paramsMap["OLLAMA_HOST"],
		OllamaModel:             paramsMap["OLLAMA_MODEL"],
		PGURI:                   paramsMap["PG_URI"],
		DataDir:                 dataDir,
		NotesDir:                paramsMap["NOTES_DIR"],
		TriggerPrefix:           paramsMap["TRIGGER_PREFIX"],
		RunnerURL:               paramsMap["RUNNER_URL"],
		RunnerSecret:            paramsMap["RUNNER_SECRET"],
		DispatchSecret:          paramsMap["DISPATCH_SECRET"],
		DispatchTimeout:         timeout,
		SchedulerTimezone:       tz,
		EnableApprovedExecution: enableExec,
		SlackBotToken:           paramsMap["SLACK_BOT_TOKEN"],
		SlackAppToken:           paramsMap["SLACK_APP_TOKEN"],
		MaxParallel:             maxParallel,
		RunnerPort:              runnerPort,
		SSHWilliamAddr:          paramsMap["SSH_WILLIAM_ADDR"],
		SSHWilliamUser:          paramsMap["SSH_WILLIAM_USER"],
		SSHWilliamKeyPath:       paramsMap["SSH_WILLIAM_KEY_PATH"],
		SSHWillyUbuntuAddr:      paramsMap["SSH_WILLY_UBUNTU_ADDR"],
		SSHWillyUbuntuUser:      paramsMap["SSH_WILLY_UBUNTU_USER"],
		SSHWillyUbuntuKeyPath:   paramsMap["SSH_WILLY_UBUNTU_KEY_PATH"],
		MediaForwardEndpoint:    paramsMap["MEDIA_FORWARD_ENDPOINT"],
		MediaForwardToken:       paramsMap["MEDIA_FORWARD_TOKEN"],
		OpencodeEndpoint:        paramsMap["OPENCODE_ENDPOINT"],
	}

	return nil
}

func GetParamsFromSSM(paramLookup map[string]string) (map[string]string, error) {
	svc := ssm.New(awsSession)

	params := map[string]string{}
	reverseLookup := map[string][]string{}

	lookup := []*string{}
	for envName, ssmName := range paramLookup {
		if ssmName == "" {
			params[envName] = os.Getenv(envName)
			continue
		}

		lookup = append(lookup, aws.String(ssmName))
		if _, ok := reverseLookup[ssmName]; !ok {
			reverseLookup[ssmName] = []string{}
		}
		reverseLookup[ssmName] = append(reverseLookup[ssmName], envName)
	}
	batch := chunkSlice(lookup, 10)

	for _, names := range batch {
		input := &ssm.GetParametersInput{
			Names:          names,
			WithDecryption: aws.Bool(true),
		}
		output, err := svc.GetParameters(input)
		if err != nil {
			return params, fmt.Errorf("call get parameters: %w", err)
		}

		for _, p := range output.InvalidParameters {
			log.Printf("Ssm param %s invalid", *p)
		}

		for _, p := range output.Parameters {
			for _, envName := range reverseLookup[*p.Name] {
				params[envName] = *p.Value
			}
		}
	}

	return params, nil
}

func GetParamsFromEnv(paramLookup map[string]string) map[string]string {
	params := map[string]string{}
	for envName := range paramLookup {
		params[envName] = os.Getenv(envName)
	}
	return params
}

func chunkSlice(s []*string, n int) [][]*string {
	var chunked [][]*string
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		chunked = append(chunked, s[i:end])
	}
	return chunked
}
