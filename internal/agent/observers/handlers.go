package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model, tool and prompt observers into one callbacks.Handler.
// modelName selects the pricing used for cost logging.
func NewAllCallbacks(modelName string) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(modelName)).
		Tool(newToolHandler()).
		Prompt(newPromptHandler()).
		Handler()
}
