package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"reflect"

	"tx-composer/lib/utils"

	"github.com/chebyrash/promise"
	"github.com/go-playground/validator/v10"
)

const DATA_DIR = "data"
const CONFIG_DIR = "config"

var ErrNotLoaded = errors.New("config not loaded")

var validate = validator.New()

// Config is a JSON file under <data-dir>/config named after T, created
// with the default value on first run.
type Config[T any] struct {
	defaultValue T
	dataDir      string

	loaded bool
	value  T
}

func New[T any](defaultValue T, dataDir *string) *Config[T] {
	dir := DATA_DIR
	if dataDir != nil && *dataDir != "" {
		dir = *dataDir
	}
	return &Config[T]{defaultValue: defaultValue, dataDir: dir}
}

func (c *Config[T]) DataDir() string {
	return c.dataDir
}

func (c *Config[T]) FilePath() string {
	name := reflect.TypeFor[T]().Name()
	return path.Join(c.dataDir, CONFIG_DIR, name+".json")
}

func (c *Config[T]) Init() error {
	f, err := os.Open(c.FilePath())
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		err = c.Update(func(t *T) {
			*t = c.defaultValue
		})
		if err != nil {
			return err
		}
	} else {
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		value := c.defaultValue
		if err := json.Unmarshal(b, &value); err != nil {
			return fmt.Errorf("failed to parse %s: %w", c.FilePath(), err)
		}
		if err := validateValue(value); err != nil {
			return fmt.Errorf("invalid config %s: %w", c.FilePath(), err)
		}
		c.value = value
	}
	c.loaded = true
	return nil
}

func (c *Config[T]) Start() *promise.Promise[any] {
	if !c.loaded {
		return promise.New(func(_ func(any), reject func(error)) {
			reject(ErrNotLoaded)
		})
	}
	return utils.PromiseResolve[any](nil)
}

func (c *Config[T]) Stop() error {
	return nil
}

func (c *Config[T]) Get() T {
	return c.value
}

// Update validates and persists the modified value. On failure the
// current value is kept.
func (c *Config[T]) Update(updater func(*T)) error {
	temp := c.value
	if !c.loaded {
		temp = c.defaultValue
	}
	updater(&temp)
	if err := validateValue(temp); err != nil {
		return err
	}
	b, err := json.MarshalIndent(temp, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(path.Dir(c.FilePath()), 0755)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.FilePath(), b, 0644)
	if err != nil {
		return err
	}
	c.value = temp
	return nil
}

func validateValue(v any) error {
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v)
}
