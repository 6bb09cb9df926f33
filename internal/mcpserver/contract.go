package mcpserver

// TemplateFormatContract describes the canonical Markdown template format
// that LLM consumers should follow when creating or updating templates.
const TemplateFormatContract = `# Vorlage Template Format Contract

Every Markdown template stored in Vorlage MUST follow this structure.

## Structure

` + "```" + `markdown
---
titel: Mahnung wegen Zahlungsverzug   # REQUIRED – display name in lists and search
kategorie: Zahlungen                   # OPTIONAL – templates without one land in "Sonstiges"
kontext:                               # OPTIONAL – entity keys the template needs
  - mieter
  - wohnung
---

Body text in standard Markdown with @-placeholders.

Sehr geehrte/r @mieter.name,

die Miete für @wohnung.adresse beträgt @wohnung.miete.
` + "```" + `

## Placeholders

1. **Syntax** is ` + "`" + `@entity` + "`" + `, ` + "`" + `@entity.feld` + "`" + `, or ` + "`" + `@entity.feld.modifikator` + "`" + `
   (letters, digits, underscore; each segment starts with a letter).
2. **Entities** are ` + "`" + `mieter` + "`" + `, ` + "`" + `wohnung` + "`" + `, ` + "`" + `haus` + "`" + `, ` + "`" + `vermieter` + "`" + `,
   plus the date directives ` + "`" + `@datum` + "`" + `, ` + "`" + `@datum.lang` + "`" + `, ` + "`" + `@monat` + "`" + `, ` + "`" + `@jahr` + "`" + `.
3. **Currency fields** (miete, kaution, nebenkosten) render German style: ` + "`" + `1.200,00 €` + "`" + `.
4. **Dates** render as ` + "`" + `09.02.2024` + "`" + `; ` + "`" + `@datum.lang` + "`" + ` renders as ` + "`" + `09. Februar 2024` + "`" + `.
5. **Unresolved placeholders** render as bracketed labels, e.g. ` + "`" + `[Mieter Name]` + "`" + ` —
   a template never fails to render because of missing context.

## Rules

1. **YAML frontmatter is optional but recommended.** When present, the ` + "```" + `---` + "```" + ` fences
   must be the first thing in the file (no leading blank lines).
2. **A title is required**: either the frontmatter ` + "`" + `titel` + "`" + ` field or a leading ` + "`" + `# Überschrift` + "`" + `.
3. **` + "`" + `kontext` + "`" + ` lists the entity keys** the template expects; validation flags
   declared-but-unused keys and placeholders outside the declared set.
4. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
5. **Encoding** is UTF-8 with a trailing newline.
6. **Language policy:** file names and directory names use Latin characters.
   Frontmatter keys are schema fields (titel, kategorie, kontext); values and
   body content are written in German.

## Example

` + "```" + `markdown
---
titel: Mietbestätigung
kategorie: Bestätigungen
kontext:
  - mieter
  - wohnung
---

# Mietbestätigung

Hiermit bestätigen wir, dass @mieter.name seit @datum Mieter/in der
Wohnung @wohnung.adresse ist. Die monatliche Miete beträgt @wohnung.miete.
` + "```" + `
`
