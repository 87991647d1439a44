// Package dom is the in-page command vocabulary. Each command is a fixed
// function body taking selector lists and values as arguments; adapters pick
// commands and supply data, never script text.
package dom

import "github.com/roelfdiedericks/chatpilot/internal/devtools"

// Script names, stable for logs and test fakes.
const (
	NameElementState  = "elementState"
	NameSignInPresent = "signInPresent"
	NameClick         = "click"
	NameFocus         = "focus"
	NameFieldText     = "fieldText"
	NameSetText       = "setText"
	NameCount         = "count"
	NameClickByText   = "clickByText"
	NameResponse      = "response"
	NameReadText      = "readText"
	NameTexts         = "texts"
	NameMarkFileInput = "markFileInputs"
	NameSnapshot      = "attachmentSnapshot"
	NameDispatch      = "dispatchInputEvents"
	NameInjectFile    = "injectFile"
	NameDropFile      = "dropFile"
)

// helpers shared by every command; prepended at compile time
const prelude = `
const __first = (sels, root) => {
  for (const s of sels || []) {
    try { const el = (root || document).querySelector(s); if (el) return [el, s]; } catch (e) {}
  }
  return [null, ""];
};
const __all = (sels, root) => {
  for (const s of sels || []) {
    try { const els = (root || document).querySelectorAll(s); if (els.length) return Array.from(els); } catch (e) {}
  }
  return [];
};
const __visible = (el) => {
  if (!el) return false;
  const r = el.getBoundingClientRect();
  const st = getComputedStyle(el);
  return r.width > 0 && r.height > 0 && st.visibility !== "hidden" && st.display !== "none";
};
const __enabled = (el) => !!el && !el.disabled && el.getAttribute("aria-disabled") !== "true" && !el.closest("[inert]");
const __text = (el) => {
  if (!el) return "";
  if (typeof el.value === "string" && (el.tagName === "TEXTAREA" || el.tagName === "INPUT")) return el.value;
  return (el.innerText || el.textContent || "");
};
const __file = (name, mime, b64) => {
  const bin = atob(b64);
  const bytes = new Uint8Array(bin.length);
  for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
  return new File([bytes], name, { type: mime || "application/octet-stream", lastModified: Date.now() });
};
const __fire = (el, names) => {
  for (const n of names) el.dispatchEvent(new Event(n, { bubbles: true, composed: true }));
};
`

func fn(params, body string) string {
	return "(" + params + ") => {" + prelude + body + "}"
}

var (
	elementState = devtools.Script{Name: NameElementState, Fn: fn("sels", `
  const [el, sel] = __first(sels);
  if (!el) return { found: false };
  return { found: true, selector: sel, visible: __visible(el), enabled: __enabled(el), text: __text(el).trim() };
`)}

	signInPresent = devtools.Script{Name: NameSignInPresent, Fn: fn("sels", `
  const [el] = __first(sels);
  return !!el && __visible(el);
`)}

	click = devtools.Script{Name: NameClick, Fn: fn("sels, requireEnabled", `
  const [el, sel] = __first(sels);
  if (!el) return { clicked: false, reason: "missing" };
  if (requireEnabled && !__enabled(el)) return { clicked: false, selector: sel, reason: "disabled" };
  el.scrollIntoView({ block: "center" });
  el.click();
  return { clicked: true, selector: sel };
`)}

	focus = devtools.Script{Name: NameFocus, Fn: fn("sels", `
  const [el] = __first(sels);
  if (!el) return false;
  el.focus();
  if (el.isContentEditable) {
    const range = document.createRange();
    range.selectNodeContents(el);
    range.collapse(false);
    const s = getSelection();
    s.removeAllRanges();
    s.addRange(range);
  }
  return document.activeElement === el || el.contains(document.activeElement);
`)}

	fieldText = devtools.Script{Name: NameFieldText, Fn: fn("sels", `
  const [el] = __first(sels);
  return __text(el).trim();
`)}

	setText = devtools.Script{Name: NameSetText, Fn: fn("sels, text", `
  const [el] = __first(sels);
  if (!el) return false;
  el.focus();
  if (el.tagName === "TEXTAREA" || el.tagName === "INPUT") {
    const proto = el.tagName === "TEXTAREA" ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    Object.getOwnPropertyDescriptor(proto, "value").set.call(el, text);
  } else {
    el.textContent = text;
  }
  el.dispatchEvent(new InputEvent("input", { bubbles: true, inputType: "insertText", data: text }));
  __fire(el, ["change"]);
  return __text(el).trim().length > 0;
`)}

	count = devtools.Script{Name: NameCount, Fn: fn("sels", `
  return __all(sels).length;
`)}

	clickByText = devtools.Script{Name: NameClickByText, Fn: fn("sels, phrase", `
  const want = String(phrase).toLowerCase();
  const items = __all(sels);
  const seen = [];
  for (const el of items) {
    const t = __text(el).trim();
    seen.push(t);
    if (t.toLowerCase().includes(want)) {
      el.scrollIntoView({ block: "center" });
      el.click();
      return { clicked: true, text: t, candidates: seen };
    }
  }
  return { clicked: false, candidates: seen };
`)}

	response = devtools.Script{Name: NameResponse, Fn: fn("turnSels, doneSels, thinkingSels, spinnerSels, phrases", `
  const turns = __all(turnSels);
  const out = { count: turns.length, text: "", html: "", done: false, thinking: false, spinner: false };
  const last = turns[turns.length - 1];
  if (last) {
    out.text = __text(last).trim();
    out.html = last.innerHTML;
    const scope = last.closest("article") || last.parentElement || last;
    out.done = !!(__first(doneSels, last)[0] || __first(doneSels, scope)[0]);
    const lower = out.text.toLowerCase();
    out.thinking = (phrases || []).some((p) => lower.startsWith(String(p).toLowerCase()));
    const [th] = __first(thinkingSels, scope);
    if (th && __visible(th)) out.thinking = true;
  }
  const [sp] = __first(spinnerSels);
  out.spinner = !!sp && __visible(sp);
  return out;
`)}

	readText = devtools.Script{Name: NameReadText, Fn: fn("sels", `
  const [el] = __first(sels);
  return el ? __text(el).trim() : "";
`)}

	texts = devtools.Script{Name: NameTexts, Fn: fn("sels", `
  return __all(sels).map((el) => __text(el).trim());
`)}

	markFileInputs = devtools.Script{Name: NameMarkFileInput, Fn: fn("scopeSels, inputSels, marker", `
  const [scope] = __first(scopeSels);
  let inputs = scope ? __all(inputSels, scope) : [];
  const inScope = inputs.length > 0;
  if (!inScope) inputs = __all(inputSels);
  return inputs.map((el, i) => {
    el.setAttribute("data-chatpilot-upload", marker + "-" + i);
    return {
      index: i,
      multiple: !!el.multiple,
      accept: el.getAttribute("accept") || "",
      inScope: inScope,
      files: Array.from(el.files || []).map((f) => f.name),
    };
  });
`)}

	snapshot = devtools.Script{Name: NameSnapshot, Fn: fn("chipSels, composerSels, marker", `
  const [composer] = __first(composerSels);
  const chips = composer ? __all(chipSels, composer) : [];
  const list = chips.length ? chips : __all(chipSels);
  const names = [];
  for (const el of document.querySelectorAll("[data-chatpilot-upload^=\"" + CSS.escape(marker) + "-\"]")) {
    for (const f of Array.from(el.files || [])) names.push(f.name);
  }
  return {
    chipCount: list.length,
    chipTexts: list.map((el) => (__text(el) || el.getAttribute("aria-label") || el.title || "").trim()),
    fileInputNames: names,
    composerText: composer ? (composer.innerText || "").trim() : "",
  };
`)}

	dispatch = devtools.Script{Name: NameDispatch, Fn: fn("selector", `
  const el = document.querySelector(selector);
  if (!el) return false;
  __fire(el, ["input", "change"]);
  return true;
`)}

	injectFile = devtools.Script{Name: NameInjectFile, Fn: fn("selector, name, mime, b64", `
  const el = document.querySelector(selector);
  if (!el) return { ok: false, names: [] };
  const dt = new DataTransfer();
  for (const f of Array.from(el.files || [])) dt.items.add(f);
  dt.items.add(__file(name, mime, b64));
  try {
    el.files = dt.files;
  } catch (e) {
    Object.defineProperty(el, "files", { value: dt.files, configurable: true });
  }
  __fire(el, ["input", "change"]);
  return { ok: true, names: Array.from(el.files || []).map((f) => f.name) };
`)}

	dropFile = devtools.Script{Name: NameDropFile, Fn: fn("targetSels, name, mime, b64", `
  const [target] = __first(targetSels);
  if (!target) return false;
  const dt = new DataTransfer();
  dt.items.add(__file(name, mime, b64));
  for (const type of ["dragenter", "dragover", "drop"]) {
    const ev = new DragEvent(type, { bubbles: true, cancelable: true, composed: true, dataTransfer: dt });
    target.dispatchEvent(ev);
  }
  return true;
`)}
)
