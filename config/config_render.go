package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/valyala/fasttemplate"

	"github.com/rollupops/disputedash/log"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

var (
	ErrCycleVars                 = fmt.Errorf("cycle vars")
	ErrMissingVars               = fmt.Errorf("missing vars")
	ErrUnsupportedConfigFileType = fmt.Errorf("unsupported config file type")
)

type FileData struct {
	Name    string
	Content string
}

type ConfigRender struct {
	// 0: default, 1: specific
	FilesData []FileData
	// Function to resolve environment variables typically: os.LookupEnv
	LookupEnvFunc     func(key string) (string, bool)
	EnvironmentPrefix string
}

func NewConfigRender(filesData []FileData, environmentPrefix string) *ConfigRender {
	return &ConfigRender{
		FilesData:         filesData,
		LookupEnvFunc:     os.LookupEnv,
		EnvironmentPrefix: environmentPrefix,
	}
}

// Render merges all files and resolves all the variables inside
func (c *ConfigRender) Render() (string, error) {
	mergedData, err := c.Merge()
	if err != nil {
		return "", fmt.Errorf("fail to merge files. Err: %w", err)
	}
	return c.ResolveVars(mergedData)
}

func (c *ConfigRender) Merge() (string, error) {
	k := koanf.New(".")
	for _, data := range c.FilesData {
		dataToml := c.convertVarsToStrings(data.Content)
		err := k.Load(rawbytes.Provider([]byte(dataToml)), toml.Parser())
		if err != nil {
			log.Errorf("error loading file %s. Err:%v.FileData: %v", data.Name, err, dataToml)
			return "", fmt.Errorf("fail to load converted template %s to toml. Err: %w", data.Name, err)
		}
	}
	marshaled, err := k.Marshal(toml.Parser())
	if err != nil {
		return "", fmt.Errorf("fail to marshal to toml. Err: %w", err)
	}
	return RemoveQuotesForVars(string(marshaled)), nil
}

func (c *ConfigRender) ResolveVars(fullConfigData string) (string, error) {
	// Read values, the values that are indirections keep the var string "{{tag}}".
	// This step doesn't resolve any var
	tpl, valuesDefined, err := c.readTemplateAndDefinedValues(fullConfigData)
	if err != nil {
		return "", err
	}
	// It fills the defined vars, if a var is not defined keep the template form:
	// A={{B}}
	rendered := c.executeTemplate(tpl, valuesDefined)
	rendered = RemoveTypeMarks(rendered)
	// Unresolved vars at this point are not a cycle, just missing values
	unresolvedVars := c.getUnresolvedVars(tpl, valuesDefined)
	if len(unresolvedVars) > 0 {
		return rendered, fmt.Errorf("missing vars: %v. Err: %w", unresolvedVars, ErrMissingVars)
	}
	// If there are still vars on the config file it means there are cycles:
	// A= {{B}} and B= {{A}}, or longer chains closing on themselves
	finalConfigData, err := c.resolveCycle(rendered)
	if err != nil {
		return fullConfigData, err
	}
	return finalConfigData, nil
}

// resolveCycle iterates over configData, each step must reduce the number of
// vars, otherwise there is a cycle
func (c *ConfigRender) resolveCycle(partialResolvedConfigData string) (string, error) {
	tmpData := RemoveQuotesForVars(partialResolvedConfigData)
	pendingVars := c.GetVars(tmpData)
	if len(pendingVars) == 0 {
		return partialResolvedConfigData, nil
	}
	log.Debugf("resolveCycle: pending vars: %v", pendingVars)
	previousData := tmpData
	for len(pendingVars) > 0 {
		previousVars := pendingVars
		tpl, valuesDefined, err := c.readTemplateAndDefinedValues(previousData)
		if err != nil {
			log.Errorf("resolveCycle: fails readTemplateAndDefinedValues. Err: %v. Data:%s", err, previousData)
			return "", fmt.Errorf("fails to read template on resolveCycle. Err: %w", err)
		}
		rendered := c.executeTemplate(tpl, valuesDefined)
		tmpData = RemoveQuotesForVars(rendered)
		tmpData = RemoveTypeMarks(tmpData)

		pendingVars = c.GetVars(tmpData)
		if len(pendingVars) == len(previousVars) {
			return partialResolvedConfigData, fmt.Errorf("not resolved cycle vars: %v. Err: %w", pendingVars, ErrCycleVars)
		}
		previousData = tmpData
	}
	return previousData, nil
}

// The variables in data must be in template form:
// A={{B}} no A="{{B}}"
func (c *ConfigRender) readTemplateAndDefinedValues(data string) (*fasttemplate.Template,
	map[string]interface{}, error) {
	tpl, err := fasttemplate.NewTemplate(data, startTag, endTag)
	if err != nil {
		return nil, nil, fmt.Errorf("fail to load template. Err:%w", err)
	}
	out := c.convertVarsToStrings(data)
	k := koanf.New(".")
	err = k.Load(rawbytes.Provider([]byte(out)), toml.Parser())
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing template values koanf.Load. Content: %s.  Err: %w", out, err)
	}
	return tpl, k.All(), nil
}

// TOML refuses bare {{var}} values, so quote them (with a type mark to undo
// the quoting later) before handing the data to the parser.
func (c *ConfigRender) convertVarsToStrings(data string) string {
	re := regexp.MustCompile(`=\s*\{\{([^}:]+)\}\}`)
	return re.ReplaceAllString(data, `= "{{${1}:int}}"`)
}

func RemoveQuotesForVars(data string) string {
	re := regexp.MustCompile(`=\s*\"\{\{([^}:]+:int)\}\}\"`)
	return re.ReplaceAllStringFunc(data, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		if len(submatch) > 1 {
			parts := strings.Split(submatch[1], ":")
			return "= {{" + parts[0] + "}}"
		}
		return match
	})
}

func RemoveTypeMarks(data string) string {
	re := regexp.MustCompile(`\{\{([^}:]+:int)\}\}`)
	return re.ReplaceAllStringFunc(data, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		if len(submatch) > 1 {
			parts := strings.Split(submatch[1], ":")
			return "{{" + parts[0] + "}}"
		}
		return match
	})
}

func (c *ConfigRender) executeTemplate(tpl *fasttemplate.Template,
	data map[string]interface{}) string {
	return tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := c.findTagInEnvironment(tag); ok {
			return w.Write([]byte(v))
		}
		if v, ok := data[tag]; ok {
			tmp := fmt.Sprintf("%v", v)
			return w.Write([]byte(tmp))
		}
		return w.Write([]byte(composeVarKeyForTemplate(tag)))
	})
}

// getUnresolvedVars returns the vars in template that are neither on data nor
// in the environment
func (c *ConfigRender) getUnresolvedVars(tpl *fasttemplate.Template,
	data map[string]interface{}) []string {
	var unresolved []string
	tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := c.findTagInEnvironment(tag); ok {
			return w.Write([]byte(v))
		}
		if _, ok := data[tag]; !ok {
			if !contains(unresolved, tag) {
				unresolved = append(unresolved, tag)
			}
		}
		return w.Write([]byte(""))
	})
	return unresolved
}

func contains(vars []string, search string) bool {
	for _, v := range vars {
		if v == search {
			return true
		}
	}
	return false
}

// GetVars returns the vars in template
func (c *ConfigRender) GetVars(configData string) []string {
	tpl, err := fasttemplate.NewTemplate(configData, startTag, endTag)
	if err != nil {
		return []string{}
	}
	var vars []string
	tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if !contains(vars, tag) {
			vars = append(vars, tag)
		}
		return w.Write([]byte(""))
	})
	return vars
}

func (c *ConfigRender) findTagInEnvironment(tag string) (string, bool) {
	envTag := c.composeVarKeyForEnvironment(tag)
	if v, ok := c.LookupEnvFunc(envTag); ok {
		return v, true
	}
	return "", false
}

func (c *ConfigRender) composeVarKeyForEnvironment(key string) string {
	return c.EnvironmentPrefix + "_" + strings.ReplaceAll(key, ".", "_")
}

func composeVarKeyForTemplate(key string) string {
	return startTag + key + endTag
}

func readFileToString(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func convertFileToToml(fileData string, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "json":
		k := koanf.New(".")
		err := k.Load(rawbytes.Provider([]byte(fileData)), json.Parser())
		if err != nil {
			return fileData, fmt.Errorf("error loading json file. Err: %w", err)
		}
		tomlData, err := toml.Parser().Marshal(k.Raw())
		if err != nil {
			return fileData, fmt.Errorf("error converting json to toml. Err: %w", err)
		}
		return string(tomlData), nil
	case "yml", "yaml", "ini":
		return fileData, fmt.Errorf("cant convert from %s to TOML. Err: %w", fileType, ErrUnsupportedConfigFileType)
	default:
		log.Warnf("filetype %s unknown, assuming is a TOML file", fileType)
		return fileData, nil
	}
}
