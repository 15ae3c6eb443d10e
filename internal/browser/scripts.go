package browser

const isVisibleScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) {
		return false;
	}
	const style = window.getComputedStyle(el);
	return el.offsetHeight !== 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
}`

// React keeps its own copy of the value, so the native setter is used and a
// change event is dispatched for the app to pick the selection up.
const selectValueScript = `function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) {
		return 'element not found';
	}
	if (!Array.from(el.options).some(o => o.value === value)) {
		return 'no option with value ' + value;
	}
	const setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, 'value').set;
	setter.call(el, value);
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return '';
}`
