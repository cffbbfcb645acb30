package summarizenode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
)

// LoadSettings fails with ErrMissingCredential before any network call when
// no API key is stored.
func LoadSettings(
	ctx context.Context,
	in *GraphState,
	store contractx.SettingsReader,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrSettingsFault, err)
	}
	if !st.HasAPIKey() {
		return nil, contractx.ErrMissingCredential
	}

	zerolog.Ctx(ctx).Debug().
		Bool("custom_instruction", st.CustomInstruction != "").
		Msg("settings loaded")

	in.Settings = st
	return in, nil
}
