package input

// Bindings is a per-mode action->combos table plus its reverse index for
// O(1) lookup during dispatch (§6 "[keybindings.<mode>]").
type Bindings struct {
	forward map[Mode]map[Action][]string
	reverse map[Mode]map[string]Action
}

// NewBindings builds a Bindings from a per-mode action->combos table,
// canonicalizing every combo with ParseCombo so config authors don't
// need to respect modifier ordering by hand.
func NewBindings(table map[Mode]map[Action][]string) *Bindings {
	b := &Bindings{
		forward: map[Mode]map[Action][]string{},
		reverse: map[Mode]map[string]Action{},
	}
	for mode, actions := range table {
		fwd := map[Action][]string{}
		rev := map[string]Action{}
		for action, combos := range actions {
			canon := make([]string, len(combos))
			for i, c := range combos {
				canon[i] = ParseCombo(c)
				rev[canon[i]] = action
			}
			fwd[action] = canon
		}
		b.forward[mode] = fwd
		b.reverse[mode] = rev
	}
	return b
}

// Resolve looks up the action bound to combo in mode, if any.
func (b *Bindings) Resolve(mode Mode, combo string) (Action, bool) {
	rev, ok := b.reverse[mode]
	if !ok {
		return "", false
	}
	action, ok := rev[combo]
	return action, ok
}

// Combos returns the combo strings bound to action in mode.
func (b *Bindings) Combos(mode Mode, action Action) []string {
	fwd, ok := b.forward[mode]
	if !ok {
		return nil
	}
	return fwd[action]
}

// DefaultBindings returns the stock binding table, matching the action
// identifiers enumerated in spec.md §6 with a conventional tmux/screen-
// style layout: Ctrl-B prefix, vi-style hjkl alongside arrow keys for
// focus/move, and number keys for workspace switching.
func DefaultBindings() *Bindings {
	table := map[Mode]map[Action][]string{
		// normal mode has no action bindings of its own: entering prefix
		// mode is handled directly by Router.prefixCombo, and every other
		// normal-mode key passes through to the focused PTY.
		ModePrefix: {
			ActionPaneNew:             {"c"},
			ActionPaneClose:           {"x"},
			ActionPaneZoom:            {"z"},
			ActionFocusNorth:          {"k", "Up"},
			ActionFocusSouth:          {"j", "Down"},
			ActionFocusEast:           {"l", "Right"},
			ActionFocusWest:           {"h", "Left"},
			ActionLayoutVertical:      {"v"},
			ActionLayoutHorizontal:    {"alt+v"},
			ActionLayoutStacked:       {"s"},
			ActionLayoutCyclePrev:     {"["},
			ActionLayoutCycleNext:     {"]"},
			ActionSessionPickerToggle: {"p"},
			ActionAggregateToggle:     {"a"},
			ActionSearchOpen:          {"/"},
			ActionClipboardPaste:      {"ctrl+v"},
			ActionConsoleToggle:       {"`"},
			ActionAppQuit:             {"q"},
			ActionHintsToggle:         {"?"},
			ActionModeMove:            {"r"},
			ActionModeCancel:          {"Escape"},
			WorkspaceSwitch(1):        {"1"},
			WorkspaceSwitch(2):        {"2"},
			WorkspaceSwitch(3):        {"3"},
			WorkspaceSwitch(4):        {"4"},
			WorkspaceSwitch(5):        {"5"},
			WorkspaceSwitch(6):        {"6"},
			WorkspaceSwitch(7):        {"7"},
			WorkspaceSwitch(8):        {"8"},
			WorkspaceSwitch(9):        {"9"},
		},
		ModeMove: {
			ActionMoveNorth:  {"k", "Up"},
			ActionMoveSouth:  {"j", "Down"},
			ActionMoveEast:   {"l", "Right"},
			ActionMoveWest:   {"h", "Left"},
			ActionModeCancel: {"Escape", "r"},
		},
		ModeSearch: {
			ActionSearchNext:    {"ctrl+n", "Down"},
			ActionSearchPrev:    {"ctrl+p", "Up"},
			ActionSearchConfirm: {"Enter"},
			ActionSearchCancel:  {"Escape"},
			ActionSearchDelete:  {"Backspace"},
		},
		ModeConfirm: {
			ActionConfirmYes: {"y", "Y", "Enter"},
			ActionConfirmNo:  {"n", "N", "Escape"},
		},
	}
	return NewBindings(table)
}
