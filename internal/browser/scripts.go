package browser

const shadowScopeScript = `el => el.shadowRoot ? el.shadowRoot : el`

const inViewportScript = `el => new Promise(resolve => {
	const observer = new IntersectionObserver(entries => {
		resolve(entries[0].isIntersecting);
		observer.disconnect();
	}, {threshold: 0});
	observer.observe(el);
})`

const scrollIntoCenterScript = `el => el.scrollIntoView({block: 'center', inline: 'center', behavior: 'auto'})`

const inputTypeScript = `el => el.type || ''`

const setValueScript = `(el, value) => {
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
}`

const parentAttributeScript = `(el, name) => el.parentNode && el.parentNode.getAttribute ? (el.parentNode.getAttribute(name) || '') : ''`

// chooseOptionScript returns false when the select or the option is missing.
const chooseOptionScript = `({selector, index}) => {
	const select = document.querySelector(selector);
	if (!select || !select.options || select.options.length <= index) {
		return false;
	}
	select.options[index].selected = true;
	select.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`
