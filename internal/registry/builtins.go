package registry

import (
	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/modules/output"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// Built-in transformer kinds.
const (
	KindImputer          = "imputer"
	KindEncoder          = "encoder"
	KindScaler           = "scaler"
	KindFeatureGenerator = "feature_generator"
	KindOutlier          = "outlier"
	KindExpression       = "expression"
	KindScript           = "script"
)

func init() {
	RegisterBuiltins()
}

// registerBuiltinTransformers registers every built-in transformer kind.
func registerBuiltinTransformers() {
	RegisterTransformer(KindImputer, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseImputerConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewImputerFromConfig(cfg)
	})

	RegisterTransformer(KindEncoder, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseEncoderConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewEncoderFromConfig(cfg)
	})

	RegisterTransformer(KindScaler, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseScalerConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewScalerFromConfig(cfg)
	})

	RegisterTransformer(KindFeatureGenerator, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseFeatureGeneratorConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewFeatureGeneratorFromConfig(cfg)
	})

	RegisterTransformer(KindOutlier, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseOutlierConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewOutlierHandlerFromConfig(cfg)
	})

	// expression - derived column computed with expr-lang
	RegisterTransformer(KindExpression, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseExpressionConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewExpressionFeatureFromConfig(cfg)
	})

	// script - per-row JavaScript using goja
	RegisterTransformer(KindScript, func(raw map[string]interface{}) (transformer.Transformer, error) {
		cfg, err := transformer.ParseScriptConfig(raw)
		if err != nil {
			return nil, err
		}
		return transformer.NewScriptTransformerFromConfig(cfg)
	})
}

// registerBuiltinInputModules registers all built-in input module types.
func registerBuiltinInputModules() {
	RegisterInput("csv", func(cfg *recipe.ModuleConfig) (input.Module, error) {
		return input.NewCSVInputFromConfig(cfg)
	})
}

// registerBuiltinOutputModules registers all built-in output module types.
func registerBuiltinOutputModules() {
	RegisterOutput("csv", func(cfg *recipe.ModuleConfig) (output.Module, error) {
		return output.NewCSVOutputFromConfig(cfg)
	})

	RegisterOutput("json", func(cfg *recipe.ModuleConfig) (output.Module, error) {
		return output.NewJSONOutputFromConfig(cfg)
	})
}
