package asset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamcli/uamcli/internal/asset"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    asset.Status
		wantErr bool
	}{
		{input: "draft", want: asset.StatusDraft},
		{input: "Draft", want: asset.StatusDraft},
		{input: "INREVIEW", want: asset.StatusInReview},
		{input: "inreview", want: asset.StatusInReview},
		{input: "approved", want: asset.StatusApproved},
		{input: "published", want: asset.StatusPublished},
		{input: "rejected", want: asset.StatusRejected},
		{input: "withdrawn", want: asset.StatusWithdrawn},
		{input: "archived", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := asset.ParseStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusPathSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inreview", asset.StatusInReview.PathSegment())
	assert.Equal(t, "published", asset.StatusPublished.PathSegment())
}

func TestForwardPath(t *testing.T) {
	t.Parallel()

	policy := asset.DefaultTransitionPolicy()

	tests := []struct {
		name   string
		from   asset.Status
		to     asset.Status
		want   []asset.Status
		wantOK bool
	}{
		{
			name:   "draft_to_published_full_chain",
			from:   asset.StatusDraft,
			to:     asset.StatusPublished,
			want:   []asset.Status{asset.StatusInReview, asset.StatusApproved, asset.StatusPublished},
			wantOK: true,
		},
		{
			name:   "draft_to_inreview_single_step",
			from:   asset.StatusDraft,
			to:     asset.StatusInReview,
			want:   []asset.Status{asset.StatusInReview},
			wantOK: true,
		},
		{
			name:   "inreview_to_published",
			from:   asset.StatusInReview,
			to:     asset.StatusPublished,
			want:   []asset.Status{asset.StatusApproved, asset.StatusPublished},
			wantOK: true,
		},
		{
			name:   "same_state_is_not_a_transition",
			from:   asset.StatusApproved,
			to:     asset.StatusApproved,
			wantOK: false,
		},
		{
			name:   "backward_is_invalid",
			from:   asset.StatusApproved,
			to:     asset.StatusDraft,
			wantOK: false,
		},
		{
			name:   "published_to_inreview_is_invalid",
			from:   asset.StatusPublished,
			to:     asset.StatusInReview,
			wantOK: false,
		},
		{
			name:   "rejected_from_inreview",
			from:   asset.StatusInReview,
			to:     asset.StatusRejected,
			want:   []asset.Status{asset.StatusRejected},
			wantOK: true,
		},
		{
			name:   "withdrawn_from_approved",
			from:   asset.StatusApproved,
			to:     asset.StatusWithdrawn,
			want:   []asset.Status{asset.StatusWithdrawn},
			wantOK: true,
		},
		{
			name:   "withdrawn_from_draft_is_invalid",
			from:   asset.StatusDraft,
			to:     asset.StatusWithdrawn,
			wantOK: false,
		},
		{
			name:   "rejected_from_published_is_invalid",
			from:   asset.StatusPublished,
			to:     asset.StatusRejected,
			wantOK: false,
		},
		{
			name:   "forward_from_exit_is_invalid",
			from:   asset.StatusRejected,
			to:     asset.StatusPublished,
			wantOK: false,
		},
		{
			name:   "exit_to_exit_is_invalid",
			from:   asset.StatusRejected,
			to:     asset.StatusWithdrawn,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := asset.ForwardPath(tt.from, tt.to, policy)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestForwardPathCustomPolicy(t *testing.T) {
	t.Parallel()

	// A site whose live contract allows withdrawing drafts.
	policy := asset.TransitionPolicy{
		ExitSources: []asset.Status{asset.StatusDraft, asset.StatusInReview, asset.StatusApproved},
	}

	path, ok := asset.ForwardPath(asset.StatusDraft, asset.StatusWithdrawn, policy)
	require.True(t, ok)
	assert.Equal(t, []asset.Status{asset.StatusWithdrawn}, path)
}

func TestForwardPathIsMinimal(t *testing.T) {
	t.Parallel()

	policy := asset.DefaultTransitionPolicy()
	steps := map[asset.Status]int{
		asset.StatusInReview:  1,
		asset.StatusApproved:  2,
		asset.StatusPublished: 3,
	}
	for to, distance := range steps {
		path, ok := asset.ForwardPath(asset.StatusDraft, to, policy)
		require.True(t, ok)
		assert.Len(t, path, distance)
	}
}
