package mcpserver

// TermFormatContract describes the canonical vocabulary note format that
// LLM consumers should follow when creating or enriching terms.
const TermFormatContract = `# Dicolex Term Note Format Contract

Every vocabulary note stored in dicolex MUST follow this structure.

## Structure

` + "```" + `markdown
---
English: translated word            # key is the configured source language name
cssclasses:
  - dictionary
---
# word

Type:: #verbe/régulier/1
Context:: #daily
Rating:: 3
Examples:: Je parle.<br>Tu parles.
Synonyms:: causer, discuter
Relations:: parole
Revision:: new
Project::
` + "```" + `

## Rules

1. **The filename IS the word.** The target-language word is the file's
   basename, lowercase (e.g. ` + "`" + `parler.md` + "`" + `). Renaming the file renames the word.
2. **The translation lives in frontmatter** under the configured source
   language key (e.g. ` + "`" + `English:` + "`" + `). All other fields are inline
   ` + "`" + `Key:: value` + "`" + ` fields in the body.
3. **Inline fields** use exactly one ` + "`" + `::` + "`" + ` separator at the start of a
   line. A value never spans multiple lines.
4. **Type and Context are hierarchical hashtags.** Verbs carry
   ` + "`" + `#verbe/régulier/1` + "`" + `, ` + "`" + `#verbe/régulier/2` + "`" + ` or
   ` + "`" + `#verbe/irrégulier/3/{ir,oir,re}` + "`" + `. Grammar reference notes carry
   ` + "`" + `#grammaire` + "`" + ` in Context or ` + "`" + `isGrammar: true` + "`" + ` in frontmatter.
5. **Examples** are separated by the literal ` + "`" + `<br>` + "`" + ` token, at most 3.
6. **Revision** starts at ` + "`" + `new` + "`" + ` and becomes a number once the word enters
   the revision loop. Never invent other revision values.
7. **Never blank a filled field.** When enriching, only fill fields that are
   empty; the upsert_term tool enforces this.
8. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
English: to see
cssclasses:
  - dictionary
---
# voir

Type:: #verbe/irrégulier/3/oir
Context:: #daily
Rating:: 5
Examples:: Je vois la mer.<br>Tu vois ce film ?
Revision:: 2
présent:: je vois, tu vois, il voit
participe-passé:: vu
` + "```" + `
`
