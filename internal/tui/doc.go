/*
Package tui implements the terminal form for formpost.

# Architecture

The TUI follows the Bubble Tea framework's Model-Update-View pattern:
  - Model: holds the widgets and a form.Holder with the submission state
  - Update: processes messages and returns commands
  - View: renders the form, the status line and the last outcome

# Key Components

  - model.go: Model struct, construction and the Update loop
  - keys.go: key bindings and keyboard routing
  - actions.go: submission, file selection, clipboard
  - render.go: view rendering
  - init.go: program startup and file indexing

# Threading Model

Update is the only code that mutates the form holder. The upload itself
runs in a tea.Cmd; its outcome comes back as a submissionDoneMsg and is
applied in Update, so holder transitions never interleave.

The holder notifies the model through a subscription, which refreshes the
result viewport after every transition.
*/
package tui
