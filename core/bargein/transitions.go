package bargein

type action int

const (
	stopSpeech action = iota
	stopFallback
	stopPreview
	pauseSpeech
	pausePreview
	resumePending
)

type transitionKey struct {
	state   Source
	trigger Trigger
	source  Source
}

type transition struct {
	next    Source
	granted bool
	actions []action
}

var stopEverything = []action{stopSpeech, stopFallback, stopPreview}

// transitions holds every (state, trigger, source) combination the
// coordinator accepts. Triggers without a source use None.
var transitions = map[transitionKey]transition{
	// Capture and explicit stop silence everything from any state.
	{None, CaptureStarted, None}:     {next: None, granted: true, actions: stopEverything},
	{Speech, CaptureStarted, None}:   {next: None, granted: true, actions: stopEverything},
	{Fallback, CaptureStarted, None}: {next: None, granted: true, actions: stopEverything},
	{Preview, CaptureStarted, None}:  {next: None, granted: true, actions: stopEverything},
	{None, StopAll, None}:            {next: None, granted: true, actions: stopEverything},
	{Speech, StopAll, None}:          {next: None, granted: true, actions: stopEverything},
	{Fallback, StopAll, None}:        {next: None, granted: true, actions: stopEverything},
	{Preview, StopAll, None}:         {next: None, granted: true, actions: stopEverything},

	// A preview takes over from everything else.
	{None, Activate, Preview}:     {next: Preview, granted: true, actions: []action{stopSpeech, stopFallback}},
	{Speech, Activate, Preview}:   {next: Preview, granted: true, actions: []action{stopSpeech, stopFallback}},
	{Fallback, Activate, Preview}: {next: Preview, granted: true, actions: []action{stopSpeech, stopFallback}},
	{Preview, Activate, Preview}:  {next: Preview, granted: true, actions: []action{stopSpeech, stopFallback}},

	// Speech pauses a preview but waits behind a fallback clip.
	{None, Activate, Speech}:     {next: Speech, granted: true},
	{Speech, Activate, Speech}:   {next: Speech, granted: true},
	{Fallback, Activate, Speech}: {next: Fallback, granted: false},
	{Preview, Activate, Speech}:  {next: Speech, granted: true, actions: []action{pausePreview}},

	// A fallback clip suspends speech and pauses a preview.
	{None, Activate, Fallback}:     {next: Fallback, granted: true, actions: []action{pauseSpeech, pausePreview}},
	{Speech, Activate, Fallback}:   {next: Fallback, granted: true, actions: []action{pauseSpeech, pausePreview}},
	{Fallback, Activate, Fallback}: {next: Fallback, granted: true, actions: []action{pauseSpeech, pausePreview}},
	{Preview, Activate, Fallback}:  {next: Fallback, granted: true, actions: []action{pauseSpeech, pausePreview}},

	// The active source finishing hands the speaker to whatever is waiting.
	{Speech, Ended, Speech}:      {next: None, granted: true, actions: []action{resumePending}},
	{Fallback, Ended, Fallback}:  {next: None, granted: true, actions: []action{resumePending}},
	{Preview, Ended, Preview}:    {next: None, granted: true, actions: []action{resumePending}},
	{Speech, Paused, Speech}:     {next: None, granted: true, actions: []action{resumePending}},
	{Fallback, Paused, Fallback}: {next: None, granted: true, actions: []action{resumePending}},
	{Preview, Paused, Preview}:   {next: None, granted: true, actions: []action{resumePending}},

	// Inactive sources finishing change nothing.
	{None, Ended, Speech}:       {next: None},
	{None, Ended, Fallback}:     {next: None},
	{None, Ended, Preview}:      {next: None},
	{Speech, Ended, Fallback}:   {next: Speech},
	{Speech, Ended, Preview}:    {next: Speech},
	{Fallback, Ended, Speech}:   {next: Fallback},
	{Fallback, Ended, Preview}:  {next: Fallback},
	{Preview, Ended, Speech}:    {next: Preview},
	{Preview, Ended, Fallback}:  {next: Preview},
	{None, Paused, Speech}:      {next: None},
	{None, Paused, Fallback}:    {next: None},
	{None, Paused, Preview}:     {next: None},
	{Speech, Paused, Fallback}:  {next: Speech},
	{Speech, Paused, Preview}:   {next: Speech},
	{Fallback, Paused, Speech}:  {next: Fallback},
	{Fallback, Paused, Preview}: {next: Fallback},
	{Preview, Paused, Speech}:   {next: Preview},
	{Preview, Paused, Fallback}: {next: Preview},
}
