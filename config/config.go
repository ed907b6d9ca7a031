package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/rollupops/disputedash/cost"
	"github.com/rollupops/disputedash/etherman"
	"github.com/rollupops/disputedash/log"
	"github.com/rollupops/disputedash/rpc"
	"github.com/rollupops/disputedash/tree"
	"github.com/rollupops/disputedash/txsender"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"
	// FlagSaveConfigPath is the flag to save the final configuration file
	FlagSaveConfigPath = "save-config-path"

	EnvVarPrefix       = "DISPUTEDASH"
	ConfigType         = "toml"
	SaveConfigFileName = "disputedash_config.toml"

	DefaultCreationFilePermissions = os.FileMode(0600)

	deprecatedFieldEstimatorPath = "CostEstimator.Path is deprecated." +
		" Use CostEstimator.OpSuccinctPath instead."
)

type ForbiddenField struct {
	FieldName string
	Reason    string
}

var forbiddenFieldsOnConfig = []ForbiddenField{
	{
		FieldName: "costestimator.path",
		Reason:    deprecatedFieldEstimatorPath,
	},
}

/*
Config represents the configuration of the entire dashboard node
The file is [TOML format].

[TOML format]: https://en.wikipedia.org/wiki/TOML
*/
type Config struct {
	// Configure Log level for all the services, allow also to store the logs in a file
	Log log.Config
	// Configuration of the client for the L2 devnet RPC
	L2 etherman.Config
	// Configuration of the commitment tree builder
	Tree tree.Config
	// Configuration of the devnet transaction generator
	TxSender txsender.Config
	// Configuration of the external cost estimator runner
	CostEstimator cost.Config
	// Parameters of the proving cost model
	CostModel cost.ModelConfig
	// RPC is the config for the dashboard HTTP server
	RPC rpc.Config
}

// Load loads the configuration
func Load(ctx *cli.Context) (*Config, error) {
	configFilePath := ctx.StringSlice(FlagCfg)
	filesData, err := readFiles(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading files:  Err:%w", err)
	}
	saveConfigPath := ctx.String(FlagSaveConfigPath)
	return LoadFile(filesData, saveConfigPath)
}

func readFiles(files []string) ([]FileData, error) {
	result := make([]FileData, 0)
	for _, file := range files {
		fileContent, err := readFileToString(file)
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %s. Err:%w", file, err)
		}
		fileExtension := getFileExtension(file)
		if fileExtension != ConfigType {
			fileContent, err = convertFileToToml(fileContent, fileExtension)
			if err != nil {
				return nil, fmt.Errorf("error converting file: %s from %s to TOML. Err:%w", file, fileExtension, err)
			}
		}
		result = append(result, FileData{Name: file, Content: fileContent})
	}
	return result, nil
}

func getFileExtension(fileName string) string {
	return fileName[strings.LastIndex(fileName, ".")+1:]
}

// LoadFileFromString loads the configuration from an already rendered string
func LoadFileFromString(configFileData string, configType string) (*Config, error) {
	cfg := &Config{}
	expectedKeys := viper.AllKeys()
	err := loadString(cfg, configFileData, configType, true, EnvVarPrefix, &expectedKeys)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the default config with the given files and loads the result
func LoadFile(files []FileData, saveConfigPath string) (*Config, error) {
	fileData := make([]FileData, 0)
	fileData = append(fileData, FileData{Name: "default_vars", Content: DefaultVars})
	fileData = append(fileData, FileData{Name: "default_values", Content: DefaultValues})
	fileData = append(fileData, files...)

	merger := NewConfigRender(fileData, EnvVarPrefix)

	renderedCfg, err := merger.Render()
	if err != nil {
		return nil, err
	}
	if saveConfigPath != "" {
		fullPath := saveConfigPath + "/" + SaveConfigFileName
		err = os.WriteFile(fullPath, []byte(renderedCfg), DefaultCreationFilePermissions)
		if err != nil {
			err = fmt.Errorf("error writing config file: %s. Err: %w", fullPath, err)
			log.Error(err)
			return nil, err
		}
	}
	cfg, err := LoadFileFromString(renderedCfg, ConfigType)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadString(cfg *Config, configData string, configType string,
	allowEnvVars bool, envPrefix string, expectedKeys *[]string) error {
	viper.SetConfigType(configType)
	if allowEnvVars {
		replacer := strings.NewReplacer(".", "_")
		viper.SetEnvKeyReplacer(replacer)
		viper.SetEnvPrefix(envPrefix)
		viper.AutomaticEnv()
	}
	err := viper.ReadConfig(bytes.NewBuffer([]byte(configData)))
	if err != nil {
		return err
	}
	decodeHooks := []viper.DecoderConfigOption{
		// this allows arrays to be decoded from env var separated by ",", example: MY_VAR="value1,value2,value3"
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","))),
	}

	err = viper.Unmarshal(&cfg, decodeHooks...)
	if err != nil {
		return err
	}

	if expectedKeys != nil {
		configKeys := viper.AllKeys()
		unexpectedFields := getUnexpectedFields(configKeys, *expectedKeys)
		for _, field := range unexpectedFields {
			forbiddenInfo := getForbiddenField(field)
			if forbiddenInfo != nil {
				log.Warnf("forbidden field %s in config file: %s", field, forbiddenInfo.Reason)
			} else {
				log.Debugf("field %s in config file doesnt have a default value", field)
			}
		}
	}
	return nil
}

func getForbiddenField(fieldName string) *ForbiddenField {
	for _, forbiddenField := range forbiddenFieldsOnConfig {
		if forbiddenField.FieldName == fieldName || strings.HasPrefix(fieldName, forbiddenField.FieldName) {
			return &forbiddenField
		}
	}
	return nil
}

func getUnexpectedFields(keysOnFile, expectedConfigKeys []string) []string {
	wrongFields := make([]string, 0)
	for _, key := range keysOnFile {
		if !contains(expectedConfigKeys, key) {
			wrongFields = append(wrongFields, key)
		}
	}
	return wrongFields
}
