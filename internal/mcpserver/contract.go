package mcpserver

// TaskSyntaxContract describes the inline metadata grammar that LLM
// consumers should use when adding or editing tasks.
const TaskSyntaxContract = `# Tusk Task Syntax

A task is one line of free text. Whitespace-separated tokens with a
leading sigil are lifted out of the text and stored as structured fields.
Everything else stays in the text, in order, joined by single spaces.

## Tokens

| Token | Meaning | Example |
|---|---|---|
| ` + "`!high`" + `, ` + "`!med`" + `, ` + "`!low`" + ` | Priority. The last one wins. | ` + "`!high`" + ` |
| ` + "`#name`" + ` | Tag. Repeatable, duplicates collapse, case-sensitive. | ` + "`#work`" + ` |
| ` + "`@NhMm`" + ` | Estimate: hours and/or minutes. | ` + "`@15m`" + `, ` + "`@1h30m`" + `, ` + "`@2h`" + ` |
| ` + "`>HH:MM`" + ` | Due time on the task's own day. | ` + "`>16:00`" + ` |
| ` + "`>YYYY-MM-DDTHH:MM`" + ` | Due at an absolute time; may end in Z or ±hh:mm. | ` + "`>2025-09-03T09:00`" + ` |

## Rules

1. Tokens must be whole words. ` + "`a#b`" + ` is plain text.
2. A malformed token (` + "`@soon`" + `, ` + "`>25:99`" + `) stays in the text and produces a warning.
3. A task whose text is empty once tokens are removed is rejected.
4. Notes are never parsed; put anything literal there.

## Example

` + "```" + `
Call Dave about invoices #work @15m !high >16:00
` + "```" + `

becomes text "Call Dave about invoices", tag work, a 900 second estimate,
priority high and a due time of 16:00 on the task's day.
`
